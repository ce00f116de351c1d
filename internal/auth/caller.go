package auth

import "github.com/labstack/echo/v4"

// callerKey is the context key under which the middleware stores the
// validated caller. Handlers must go through SetCaller/CallerFrom instead
// of touching the raw key.
const callerKey = "auth.caller"

// Caller is the request-scoped identity attached after successful
// authorization: the validated subject id, its role, and the id of the
// store it owns (zero when none). It is never persisted and lives only for
// the duration of the request.
type Caller struct {
	ID      uint64 `json:"id"`
	Role    string `json:"role"`
	StoreID uint64 `json:"storeId,omitempty"`
}

// SetCaller attaches the caller to the Echo context.
func SetCaller(c echo.Context, caller Caller) { c.Set(callerKey, caller) }

// CallerFrom returns the caller attached by the authorization middleware.
// The second return is false when the route was not protected.
func CallerFrom(c echo.Context) (Caller, bool) {
	caller, ok := c.Get(callerKey).(Caller)
	return caller, ok
}
