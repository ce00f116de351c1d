// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/config"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/handler"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/middleware"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/model"
)

// Register wires the auth surface of the service. Unauthenticated
// credential operations live under /v1/auth and carry the rate limiter;
// protected groups apply the authorization gate with explicit role
// allow-lists. Business controllers (products, orders, ...) attach their
// routes to the groups returned by Protected.
func Register(e *echo.Echo, a *handler.AuthHandler, gate *middleware.Auth, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Credential issuance and rotation: no session exists yet, so these
	// are the brute-force surface the token bucket protects.
	pub := e.Group("/v1/auth")
	pub.Use(middleware.NewTokenBucket(rlCfg, rdb))
	pub.POST("/register", a.Register)
	pub.POST("/login", a.Login)
	pub.POST("/refresh", a.Refresh)
	pub.POST("/logout", a.Logout)

	// Any authenticated caller: an empty allow-list checks credentials
	// only, not the role.
	me := e.Group("/v1")
	me.Use(gate.Require())
	me.GET("/me", a.Me)
}

// Groups holds the role-gated route groups business controllers mount
// their endpoints on. There is no role hierarchy: ADMIN is listed
// explicitly on every group it should pass.
type Groups struct {
	Seller  *echo.Group // SELLER and ADMIN
	Admin   *echo.Group // ADMIN only
	Support *echo.Group // SUPPORT and ADMIN
}

// Protected builds the standard role-gated groups.
func Protected(e *echo.Echo, gate *middleware.Auth) Groups {
	seller := e.Group("/v1/seller")
	seller.Use(gate.Require(model.RoleSeller, model.RoleAdmin))

	admin := e.Group("/v1/admin")
	admin.Use(gate.Require(model.RoleAdmin))

	support := e.Group("/v1/support")
	support.Use(gate.Require(model.RoleSupport, model.RoleAdmin))

	return Groups{Seller: seller, Admin: admin, Support: support}
}
