package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/auth"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/config"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/middleware"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/model"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/queue"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/repository"
	queue_publisher "github.com/Bernyabreu42/backend-marketplace-sub001/internal/service"
)

// welcomePoints is the loyalty award granted on account creation.
const welcomePoints = 100

// AuthHandler bundles dependencies for the auth endpoints. Credentials
// travel exclusively in cookies; response bodies carry only user data and
// expiry hints.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Manager *auth.Manager
	Cookies middleware.CookiePolicy
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, manager *auth.Manager, cookies middleware.CookiePolicy) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Manager: manager, Cookies: cookies}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // BUYER | SELLER
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User             userPart  `json:"user"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Register creates the account, starts a session and sets both cookies.
// The loyalty award is dispatched to the broker without blocking the
// response.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cuerpo inválido"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email y password requeridos"})
	}
	// Only the two self-service roles can be picked at registration;
	// ADMIN and SUPPORT are provisioned out of band.
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleSeller {
		role = model.RoleBuyer
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "el email ya existe"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no se pudo crear el usuario"})
	}

	u := model.User{ID: uid, Email: req.Email, Role: role, IsActive: true}
	pair, err := h.Manager.StartSession(ctx, u, c.Request().UserAgent(), c.RealIP())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no se pudo iniciar sesión"})
	}
	h.Cookies.SetPair(c, pair.Access.Value, pair.Access.Exp, pair.Refresh.Value, pair.Refresh.Exp)

	// Award points off the request path; the publisher owns its failure
	// handling and the registration response does not wait for it.
	go func(ev queue.LoyaltyAwardEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishLoyaltyAward(ctx, ev)
	}(queue.LoyaltyAwardEvent{
		UserID:    uid,
		Email:     req.Email,
		Points:    welcomePoints,
		Reason:    "registro",
		AwardedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, authResp{
		User:             userPart{ID: uid, Email: req.Email, Role: role},
		AccessExpiresAt:  pair.Access.Exp,
		RefreshExpiresAt: pair.Refresh.Exp,
	})
}

// Login verifies credentials and sets a fresh cookie pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cuerpo inválido"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email y password requeridos"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Manager.Login(ctx, req.Email, req.Password, c.Request().UserAgent(), c.RealIP())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "credenciales inválidas"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no se pudo iniciar sesión"})
	}
	h.Cookies.SetPair(c, pair.Access.Value, pair.Access.Exp, pair.Refresh.Value, pair.Refresh.Exp)

	return c.JSON(http.StatusOK, authResp{
		User:             userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		AccessExpiresAt:  pair.Access.Exp,
		RefreshExpiresAt: pair.Refresh.Exp,
	})
}

// Refresh rotates the refresh cookie explicitly. Browsers normally never
// call this — the authorization middleware rotates transparently — but
// non-browser clients can drive their own renewal with it. It delegates to
// the same lifecycle rotation, so the non-replay guarantee is identical.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := cookieValue(c, middleware.RefreshCookie)
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token requerido"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Manager.Rotate(ctx, raw, c.Request().UserAgent(), c.RealIP())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpired),
			errors.Is(err, auth.ErrInvalidSignature),
			errors.Is(err, auth.ErrMalformed),
			errors.Is(err, auth.ErrSessionNotFound):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token inválido"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno"})
		}
	}
	h.Cookies.SetPair(c, pair.Access.Value, pair.Access.Exp, pair.Refresh.Value, pair.Refresh.Exp)

	return c.JSON(http.StatusOK, authResp{
		User:             userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		AccessExpiresAt:  pair.Access.Exp,
		RefreshExpiresAt: pair.Refresh.Exp,
	})
}

// Logout revokes the session behind the refresh cookie and clears both
// cookies. Revoking an absent or already-revoked session is a no-op, so
// repeated logouts always succeed.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Manager.Logout(ctx, cookieValue(c, middleware.RefreshCookie)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no se pudo cerrar sesión"})
	}
	h.Cookies.Clear(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller context attached by the authorization middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	caller, ok := auth.CallerFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token requerido"})
	}
	return c.JSON(http.StatusOK, caller)
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil || ck == nil {
		return ""
	}
	return ck.Value
}
