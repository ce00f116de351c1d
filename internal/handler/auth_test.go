package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/auth"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/config"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/middleware"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/model"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/repository"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/utils"
)

// stubSessions keeps sessions in a map with the same visibility rules as
// the SQL store. Single-goroutine use only; handler tests do not race.
type stubSessions struct {
	rows map[string]model.Session
	next uint64
}

func (s *stubSessions) Create(_ context.Context, userID uint64, hash string, exp time.Time, ua, ip string) (model.Session, error) {
	s.next++
	sess := model.Session{ID: s.next, UserID: userID, RefreshHash: hash, UserAgent: ua, IP: ip, ExpiresAt: exp}
	s.rows[hash] = sess
	return sess, nil
}

func (s *stubSessions) FindActiveByHash(_ context.Context, hash string) (model.Session, error) {
	sess, ok := s.rows[hash]
	if !ok || !sess.Active(time.Now().UTC()) {
		return model.Session{}, repository.ErrNotFound
	}
	return sess, nil
}

func (s *stubSessions) Rotate(_ context.Context, oldHash, newHash string, exp time.Time, ua, ip string) (int64, error) {
	sess, ok := s.rows[oldHash]
	if !ok || !sess.Active(time.Now().UTC()) {
		return 0, nil
	}
	delete(s.rows, oldHash)
	sess.RefreshHash = newHash
	sess.ExpiresAt = exp
	s.rows[newHash] = sess
	return 1, nil
}

func (s *stubSessions) Revoke(_ context.Context, hash string) error {
	if sess, ok := s.rows[hash]; ok && sess.RevokedAt == nil {
		now := time.Now().UTC()
		sess.RevokedAt = &now
		s.rows[hash] = sess
	}
	return nil
}

func (s *stubSessions) RevokeAllForUser(_ context.Context, userID uint64) error {
	now := time.Now().UTC()
	for h, sess := range s.rows {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
			s.rows[h] = sess
		}
	}
	return nil
}

type stubUsers struct{ byID map[uint64]model.User }

func (s *stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func configForTest() config.Config {
	return config.Config{Env: "test", BcryptCost: 4, AccessTTLMin: 15, RefreshTTLDays: 7}
}

func newTestHandler(t *testing.T, users ...model.User) (*AuthHandler, *auth.Manager) {
	t.Helper()
	byID := make(map[uint64]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	codec := auth.NewCodec("ac", "re", "rs", 15, 7)
	manager := auth.NewManager(codec, &stubSessions{rows: map[string]model.Session{}}, &stubUsers{byID: byID})
	h := NewAuthHandler(configForTest(), nil, manager, middleware.CookiePolicy{})
	return h, manager
}

func doJSON(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestLogin_SetsCookiePair(t *testing.T) {
	hash, err := utils.HashPassword("secreta123", 4)
	require.NoError(t, err)
	u := model.User{ID: 1, Email: "ana@tienda.do", PasswordHash: hash, Role: model.RoleBuyer, IsActive: true}
	h, _ := newTestHandler(t, u)

	e := echo.New()
	rec, c := doJSON(e, http.MethodPost, "/v1/auth/login", `{"email":"ana@tienda.do","password":"secreta123"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ana@tienda.do"`)

	set := rec.Result().Cookies()
	names := []string{}
	for _, ck := range set {
		names = append(names, ck.Name)
		assert.True(t, ck.HttpOnly)
	}
	assert.ElementsMatch(t, []string{middleware.AccessCookie, middleware.RefreshCookie}, names)
}

func TestLogin_BadCredentials(t *testing.T) {
	hash, err := utils.HashPassword("secreta123", 4)
	require.NoError(t, err)
	u := model.User{ID: 1, Email: "ana@tienda.do", PasswordHash: hash, Role: model.RoleBuyer, IsActive: true}
	h, _ := newTestHandler(t, u)

	e := echo.New()
	rec, c := doJSON(e, http.MethodPost, "/v1/auth/login", `{"email":"ana@tienda.do","password":"nope"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestRefresh_RotatesCookies(t *testing.T) {
	u := model.User{ID: 1, Email: "ana@tienda.do", Role: model.RoleBuyer, IsActive: true}
	h, manager := newTestHandler(t, u)

	pair, err := manager.StartSession(context.Background(), u, "", "")
	require.NoError(t, err)

	e := echo.New()
	rec, c := doJSON(e, http.MethodPost, "/v1/auth/refresh", "",
		&http.Cookie{Name: middleware.RefreshCookie, Value: pair.Refresh.Value})
	require.NoError(t, h.Refresh(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	set := rec.Result().Cookies()
	require.Len(t, set, 2)
	for _, ck := range set {
		if ck.Name == middleware.RefreshCookie {
			assert.NotEqual(t, pair.Refresh.Value, ck.Value, "refresh value must rotate")
		}
	}

	// Replaying the old refresh cookie fails closed.
	rec2, c2 := doJSON(e, http.MethodPost, "/v1/auth/refresh", "",
		&http.Cookie{Name: middleware.RefreshCookie, Value: pair.Refresh.Value})
	require.NoError(t, h.Refresh(c2))
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestRefresh_MissingCookie(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	rec, c := doJSON(e, http.MethodPost, "/v1/auth/refresh", "")
	require.NoError(t, h.Refresh(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token requerido")
}

func TestLogout_RevokesAndClears(t *testing.T) {
	u := model.User{ID: 1, Email: "ana@tienda.do", Role: model.RoleBuyer, IsActive: true}
	h, manager := newTestHandler(t, u)

	pair, err := manager.StartSession(context.Background(), u, "", "")
	require.NoError(t, err)

	e := echo.New()
	rec, c := doJSON(e, http.MethodPost, "/v1/auth/logout", "",
		&http.Cookie{Name: middleware.RefreshCookie, Value: pair.Refresh.Value})
	require.NoError(t, h.Logout(c))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	set := rec.Result().Cookies()
	require.Len(t, set, 2)
	for _, ck := range set {
		assert.Empty(t, ck.Value)
	}

	// The session is gone; an explicit refresh with the old value fails.
	rec2, c2 := doJSON(e, http.MethodPost, "/v1/auth/refresh", "",
		&http.Cookie{Name: middleware.RefreshCookie, Value: pair.Refresh.Value})
	require.NoError(t, h.Refresh(c2))
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestLogout_WithoutCookieIsNoop(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	rec, c := doJSON(e, http.MethodPost, "/v1/auth/logout", "")
	require.NoError(t, h.Logout(c))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMe_RequiresCaller(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	rec, c := doJSON(e, http.MethodGet, "/v1/me", "")
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec2, c2 := doJSON(e, http.MethodGet, "/v1/me", "")
	auth.SetCaller(c2, auth.Caller{ID: 3, Role: model.RoleSeller, StoreID: 12})
	require.NoError(t, h.Me(c2))
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Contains(t, rec2.Body.String(), `"storeId":12`)
}
