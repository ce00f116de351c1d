// Package middleware contains the request-time gates applied to protected
// routes: the credential/role authorization state machine and the Redis
// rate limiter for the pre-auth endpoints.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/auth"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/model"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/repository"
)

// storeTimeout bounds the session/user lookups performed per request.
const storeTimeout = 5 * time.Second

// Auth is the route authorization middleware. Per request it validates the
// access cookie, falls back to refresh-and-rotate against the session
// store, loads the caller and enforces the route's role allow-list. All
// dependencies are injected at startup.
type Auth struct {
	Codec   *auth.Codec
	Manager *auth.Manager
	Users   auth.UserStore
	Cookies CookiePolicy
}

func NewAuth(codec *auth.Codec, manager *auth.Manager, users auth.UserStore, cookies CookiePolicy) *Auth {
	return &Auth{Codec: codec, Manager: manager, Users: users, Cookies: cookies}
}

// Require returns the gate for routes restricted to the given roles. An
// empty list admits any authenticated caller. The states, in order:
//
//  1. no access and no refresh cookie        -> 401 "Token requerido"
//  2. access cookie verifies                 -> role gate, attach caller,
//     next; cookies are never touched on this path
//  3. access absent/invalid, refresh present -> rotate against the session
//     store; loser of a concurrent rotation race fails closed with 401;
//     winner gets both cookies rewritten, then role gate as in 2
//  4. anything else                          -> 401
//
// Session-store I/O failures surface as 500, never as 401: an outage is
// not evidence that the credential is invalid.
func (a *Auth) Require(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accessRaw := cookieValue(c, AccessCookie)
			refreshRaw := cookieValue(c, RefreshCookie)

			if accessRaw == "" && refreshRaw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token requerido"})
			}

			if accessRaw != "" {
				claims, err := a.Codec.VerifyAccess(accessRaw)
				if err == nil {
					// Fast path: stateless validation, one user load,
					// no session round trip, no cookie rewrite.
					return a.admit(c, next, allowed, claims.UserID)
				}
				// Expired or otherwise invalid access token: fall through
				// to the refresh path when a refresh cookie exists.
			}

			if refreshRaw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token inválido"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
			defer cancel()
			u, pair, err := a.Manager.Rotate(ctx, refreshRaw, c.Request().UserAgent(), c.RealIP())
			if err != nil {
				if isAuthFailure(err) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token inválido"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno"})
			}

			a.Cookies.SetPair(c, pair.Access.Value, pair.Access.Exp, pair.Refresh.Value, pair.Refresh.Exp)
			return a.pass(c, next, allowed, u)
		}
	}
}

// admit loads the subject and hands the request to pass. Used on the fast
// path, where only the user lookup touches the database.
func (a *Auth) admit(c echo.Context, next echo.HandlerFunc, allowed map[string]bool, userID uint64) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	u, err := a.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Token verifies but the subject no longer exists.
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token inválido"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno"})
	}
	return a.pass(c, next, allowed, u)
}

// pass applies the role gate and attaches the caller context. The gate is
// a pure set-membership test: no hierarchy, no implication between roles.
func (a *Auth) pass(c echo.Context, next echo.HandlerFunc, allowed map[string]bool, u model.User) error {
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token inválido"})
	}
	if len(allowed) > 0 && !allowed[u.Role] {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Acceso denegado"})
	}
	auth.SetCaller(c, auth.Caller{ID: u.ID, Role: u.Role, StoreID: u.StoreID})
	return next(c)
}

// isAuthFailure reports whether the rotation error means the credential is
// bad, as opposed to the store being unreachable.
func isAuthFailure(err error) bool {
	return errors.Is(err, auth.ErrExpired) ||
		errors.Is(err, auth.ErrInvalidSignature) ||
		errors.Is(err, auth.ErrMalformed) ||
		errors.Is(err, auth.ErrSessionNotFound)
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}
