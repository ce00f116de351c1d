package model

import "time"

// Session models a row in the `sessions` table. A session binds a refresh
// credential to a user on the server side: the refresh token is only
// honored while a matching, non-revoked, non-expired session row exists.
// The plain refresh token is never stored; only its SHA-256 hash.
//
// UserAgent and IP are best-effort provenance captured at creation and at
// each rotation; their absence is not an error.
//
// Fields:
//
//	ID          – primary key identifier.
//	PublicID    – opaque UUID exposed to logs and admin tooling.
//	UserID      – owner of the session.
//	RefreshHash – SHA-256 hex digest of the current refresh token.
//	UserAgent   – User-Agent header observed when the session was (re)issued.
//	IP          – client address observed when the session was (re)issued.
//	ExpiresAt   – expiration timestamp of the current refresh token.
//	RevokedAt   – when the session was revoked (null while active).
//	CreatedAt   – timestamp of creation.
//	RotatedAt   – timestamp of the most recent rotation (null until rotated).
type Session struct {
	ID          uint64     // sessions.id
	PublicID    string     // sessions.public_id
	UserID      uint64     // sessions.user_id
	RefreshHash string     // sessions.refresh_hash
	UserAgent   string     // sessions.user_agent
	IP          string     // sessions.ip
	ExpiresAt   time.Time  // sessions.expires_at
	RevokedAt   *time.Time // sessions.revoked_at (nullable)
	CreatedAt   time.Time  // sessions.created_at
	RotatedAt   *time.Time // sessions.rotated_at (nullable)
}

// Active reports whether the session can still authorize a refresh at the
// given instant.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
