package utils

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Session cookie names. Both cookies are HTTP-only and scoped to the whole
// site; page scripts never see token material.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// WriteSession attaches both tokens to the response. The access cookie lives
// exactly as long as the access token. The refresh cookie's max-age is the
// remaining time until the stored expiry, not a fixed constant, so a browser
// never retains the cookie past server-side validity.
func WriteSession(c echo.Context, access, refresh string, accessTTL, refreshRemaining time.Duration, secure bool) {
	c.SetCookie(sessionCookie(AccessCookie, access, accessTTL, secure))
	c.SetCookie(sessionCookie(RefreshCookie, refresh, refreshRemaining, secure))
}

// WriteAccess rewrites only the access cookie. Used when a refresh reuses
// the existing refresh credential.
func WriteAccess(c echo.Context, access string, accessTTL time.Duration, secure bool) {
	c.SetCookie(sessionCookie(AccessCookie, access, accessTTL, secure))
}

// ClearSession re-sets both cookies empty and already expired, which removes
// them on every browser that honors the flags. It never fails.
func ClearSession(c echo.Context, secure bool) {
	c.SetCookie(expiredCookie(AccessCookie, secure))
	c.SetCookie(expiredCookie(RefreshCookie, secure))
}

func sessionCookie(name, value string, ttl time.Duration, secure bool) *http.Cookie {
	maxAge := int(ttl / time.Second)
	if maxAge < 0 {
		maxAge = 0
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  time.Now().UTC().Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
