package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/model"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/repository"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/utils"
)

// SessionStore is the server-side session contract the lifecycle manager
// requires. Implementations must treat expired or revoked rows as absent,
// and Rotate must be atomic: of N concurrent rotations keyed on the same
// old hash, at most one may report a row affected.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, refreshHash string, expiresAt time.Time, userAgent, ip string) (model.Session, error)
	FindActiveByHash(ctx context.Context, refreshHash string) (model.Session, error)
	Rotate(ctx context.Context, oldHash, newHash string, newExpiresAt time.Time, userAgent, ip string) (int64, error)
	Revoke(ctx context.Context, refreshHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// UserStore is the user lookup contract consumed by the manager and the
// authorization middleware.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// TokenPair bundles the two credentials issued together plus the session
// row that backs the refresh half.
type TokenPair struct {
	Access  Token
	Refresh Token
	Session model.Session
}

// Manager drives the session lifecycle: a session is created at login,
// replaced in place at each rotation, and revoked at logout. The store and
// codec are injected at startup; Manager holds no global state and is safe
// for concurrent use.
type Manager struct {
	codec    *Codec
	sessions SessionStore
	users    UserStore
}

func NewManager(codec *Codec, sessions SessionStore, users UserStore) *Manager {
	return &Manager{codec: codec, sessions: sessions, users: users}
}

// Login verifies the password against the stored bcrypt hash and, on
// success, issues an access+refresh pair and creates the backing session.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (m *Manager) Login(ctx context.Context, email, password, userAgent, ip string) (model.User, TokenPair, error) {
	u, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return model.User{}, TokenPair{}, fmt.Errorf("buscar usuario: %w", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := m.StartSession(ctx, u, userAgent, ip)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// StartSession issues a fresh credential pair for an already-authenticated
// user and persists the session row. Used by Login and by registration,
// where the identity was just created.
func (m *Manager) StartSession(ctx context.Context, u model.User, userAgent, ip string) (TokenPair, error) {
	access, err := m.codec.IssueAccess(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("emitir access token: %w", err)
	}
	refresh, err := m.codec.IssueRefresh(u.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("emitir refresh token: %w", err)
	}
	sess, err := m.sessions.Create(ctx, u.ID, HashRefresh(refresh.Value), refresh.Exp, userAgent, ip)
	if err != nil {
		return TokenPair{}, fmt.Errorf("crear sesión: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh, Session: sess}, nil
}

// Rotate exchanges a still-valid refresh token for a brand new pair,
// invalidating the old refresh value in the same store operation. Under
// concurrent duplicate requests carrying the same stale pair, the store's
// conditional update lets exactly one caller win; the rest get
// ErrSessionNotFound and must fail closed.
func (m *Manager) Rotate(ctx context.Context, rawRefresh, userAgent, ip string) (model.User, TokenPair, error) {
	if _, err := m.codec.VerifyRefresh(rawRefresh); err != nil {
		return model.User{}, TokenPair{}, err
	}
	oldHash := HashRefresh(rawRefresh)
	sess, err := m.sessions.FindActiveByHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, TokenPair{}, ErrSessionNotFound
		}
		return model.User{}, TokenPair{}, fmt.Errorf("buscar sesión: %w", err)
	}
	u, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, TokenPair{}, ErrSessionNotFound
		}
		return model.User{}, TokenPair{}, fmt.Errorf("buscar usuario: %w", err)
	}
	if !u.IsActive {
		return model.User{}, TokenPair{}, ErrSessionNotFound
	}

	access, err := m.codec.IssueAccess(u.ID, u.Role)
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("emitir access token: %w", err)
	}
	refresh, err := m.codec.IssueRefresh(u.ID)
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("emitir refresh token: %w", err)
	}
	newHash := HashRefresh(refresh.Value)
	rows, err := m.sessions.Rotate(ctx, oldHash, newHash, refresh.Exp, userAgent, ip)
	if err != nil {
		return model.User{}, TokenPair{}, fmt.Errorf("rotar sesión: %w", err)
	}
	if rows == 0 {
		// A concurrent request rotated this session first.
		return model.User{}, TokenPair{}, ErrSessionNotFound
	}

	now := time.Now().UTC()
	sess.RefreshHash = newHash
	sess.ExpiresAt = refresh.Exp
	sess.UserAgent = userAgent
	sess.IP = ip
	sess.RotatedAt = &now
	return u, TokenPair{Access: access, Refresh: refresh, Session: sess}, nil
}

// Logout revokes the session matching the presented refresh token.
// Revoking an already-revoked or unknown session is a no-op, not an error.
func (m *Manager) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	if err := m.sessions.Revoke(ctx, HashRefresh(rawRefresh)); err != nil {
		return fmt.Errorf("revocar sesión: %w", err)
	}
	return nil
}

// LogoutAll revokes every active session belonging to the user, logging it
// out across devices.
func (m *Manager) LogoutAll(ctx context.Context, userID uint64) error {
	if err := m.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revocar sesiones: %w", err)
	}
	return nil
}
