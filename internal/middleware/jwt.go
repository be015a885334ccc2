package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vitalstack/auth-service/internal/utils"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that authenticates a request from its
// access token and injects the decoded identity into the request context.
// The browser flow carries the token in the HTTP-only access_token cookie;
// an Authorization bearer header is accepted as a fallback for non-browser
// clients. Verification is purely signature+expiry, no store access.
func JWTAuth(accessSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessTokenFrom(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing access token"})
			}
			id, err := utils.ParseAccess(accessSecret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			c.Set(CtxUserID, id.UserID)
			c.Set(CtxEmail, id.Email)
			c.Set(CtxRole, id.Role)
			return next(c)
		}
	}
}

// accessTokenFrom extracts the raw access token, cookie first.
func accessTokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(utils.AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// UserID returns the authenticated user id stored by JWTAuth, or 0 when the
// request is unauthenticated.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get(CtxUserID).(uint64); ok {
		return v
	}
	return 0
}
