package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names are part of the public contract with the frontend.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookiePolicy builds the auth cookies. Both are HttpOnly; in production
// they are additionally Secure with SameSite=None so the SPA frontend can
// send them cross-site, otherwise SameSite=Lax for local development.
type CookiePolicy struct {
	Prod bool
}

func (p CookiePolicy) sameSite() http.SameSite {
	if p.Prod {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// Access builds the short-lived access token cookie.
func (p CookiePolicy) Access(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     AccessCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   p.Prod,
		SameSite: p.sameSite(),
	}
}

// Refresh builds the long-lived refresh token cookie.
func (p CookiePolicy) Refresh(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   p.Prod,
		SameSite: p.sameSite(),
	}
}

// SetPair writes both credential cookies on the response. Called only on
// login/registration and on the middleware's rotation path; the validated
// fast path never rewrites cookies.
func (p CookiePolicy) SetPair(c echo.Context, accessValue string, accessExp time.Time, refreshValue string, refreshExp time.Time) {
	c.SetCookie(p.Access(accessValue, accessExp))
	c.SetCookie(p.Refresh(refreshValue, refreshExp))
}

// Clear expires both credential cookies, used at logout.
func (p CookiePolicy) Clear(c echo.Context) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   p.Prod,
			SameSite: p.sameSite(),
		})
	}
}
