package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordCookies(apply func(c echo.Context)) []*http.Cookie {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	apply(c)
	return rec.Result().Cookies()
}

func TestCookiePolicy_DevFlags(t *testing.T) {
	p := CookiePolicy{Prod: false}
	exp := time.Now().UTC().Add(15 * time.Minute)

	set := recordCookies(func(c echo.Context) {
		p.SetPair(c, "acc", exp, "ref", exp.Add(7*24*time.Hour))
	})
	require.Len(t, set, 2)
	for _, ck := range set {
		assert.True(t, ck.HttpOnly, "%s must be HttpOnly", ck.Name)
		assert.False(t, ck.Secure, "%s must not be Secure outside prod", ck.Name)
		assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
		assert.Equal(t, "/", ck.Path)
	}
}

func TestCookiePolicy_ProdFlags(t *testing.T) {
	p := CookiePolicy{Prod: true}
	exp := time.Now().UTC().Add(15 * time.Minute)

	set := recordCookies(func(c echo.Context) {
		p.SetPair(c, "acc", exp, "ref", exp.Add(7*24*time.Hour))
	})
	require.Len(t, set, 2)
	for _, ck := range set {
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure, "%s must be Secure in prod", ck.Name)
		assert.Equal(t, http.SameSiteNoneMode, ck.SameSite)
	}
}

func TestCookiePolicy_PairNamesAndExpiry(t *testing.T) {
	p := CookiePolicy{}
	accExp := time.Now().UTC().Add(15 * time.Minute).Truncate(time.Second)
	refExp := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)

	set := recordCookies(func(c echo.Context) {
		p.SetPair(c, "acc", accExp, "ref", refExp)
	})
	require.Len(t, set, 2)
	byName := map[string]*http.Cookie{}
	for _, ck := range set {
		byName[ck.Name] = ck
	}
	require.Contains(t, byName, AccessCookie)
	require.Contains(t, byName, RefreshCookie)
	assert.Equal(t, "acc", byName[AccessCookie].Value)
	assert.Equal(t, "ref", byName[RefreshCookie].Value)
	assert.WithinDuration(t, accExp, byName[AccessCookie].Expires, time.Second)
	assert.WithinDuration(t, refExp, byName[RefreshCookie].Expires, time.Second)
}

func TestCookiePolicy_ClearExpiresBoth(t *testing.T) {
	p := CookiePolicy{}

	set := recordCookies(func(c echo.Context) { p.Clear(c) })
	require.Len(t, set, 2)
	for _, ck := range set {
		assert.Empty(t, ck.Value)
		assert.True(t, ck.MaxAge < 0 || ck.Expires.Before(time.Now()), "%s must expire immediately", ck.Name)
	}
}
