package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/model"
)

// SessionRepo persists server-side sessions in the `sessions` table. One
// row corresponds to one refresh credential; the row stores only the
// SHA-256 hash of the token value. Rotation replaces the hash in place
// with a conditional update so two concurrent rotations against the same
// stale hash can never both succeed.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row for a freshly issued refresh token.
// UserAgent and ip are best-effort provenance; empty values are stored
// as-is.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, refreshHash string, expiresAt time.Time, userAgent, ip string) (model.Session, error) {
	publicID := uuid.New().String()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (public_id, user_id, refresh_hash, user_agent, ip, expires_at) VALUES (?,?,?,?,?,?)",
		publicID, userID, refreshHash, userAgent, ip, expiresAt)
	if err != nil {
		return model.Session{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{
		ID:          uint64(id),
		PublicID:    publicID,
		UserID:      userID,
		RefreshHash: refreshHash,
		UserAgent:   userAgent,
		IP:          ip,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// FindActiveByHash returns the session whose current refresh hash matches.
// Rows that are revoked or past their expiry read as ErrNotFound: a dead
// session must be indistinguishable from a missing one.
func (r *SessionRepo) FindActiveByHash(ctx context.Context, refreshHash string) (model.Session, error) {
	var (
		s         model.Session
		revokedAt sql.NullTime
		rotatedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, public_id, user_id, refresh_hash, user_agent, ip, expires_at, revoked_at, created_at, rotated_at
		 FROM sessions WHERE refresh_hash=? LIMIT 1`,
		refreshHash).Scan(&s.ID, &s.PublicID, &s.UserID, &s.RefreshHash, &s.UserAgent, &s.IP, &s.ExpiresAt, &revokedAt, &s.CreatedAt, &rotatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}
	if revokedAt.Valid {
		return model.Session{}, ErrNotFound
	}
	if time.Now().UTC().After(s.ExpiresAt) {
		return model.Session{}, ErrNotFound
	}
	if rotatedAt.Valid {
		t := rotatedAt.Time
		s.RotatedAt = &t
	}
	return s, nil
}

// Rotate atomically swaps the stored refresh hash for a new one. The WHERE
// clause keys on the old hash and on the row still being active, so of N
// concurrent attempts exactly one observes rows=1; the losers see rows=0
// and the caller fails closed. Provenance columns are refreshed alongside.
func (r *SessionRepo) Rotate(ctx context.Context, oldHash, newHash string, newExpiresAt time.Time, userAgent, ip string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE sessions
		 SET refresh_hash=?, expires_at=?, user_agent=?, ip=?, rotated_at=UTC_TIMESTAMP()
		 WHERE refresh_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		newHash, newExpiresAt, userAgent, ip, oldHash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Revoke marks the session holding this refresh hash as revoked. Revoking
// an unknown or already-revoked session is a no-op.
func (r *SessionRepo) Revoke(ctx context.Context, refreshHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE refresh_hash=? AND revoked_at IS NULL",
		refreshHash)
	return err
}

// RevokeAllForUser revokes every active session belonging to the user.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
