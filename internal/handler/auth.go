package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vitalstack/auth-service/internal/config"
	"github.com/vitalstack/auth-service/internal/middleware"
	"github.com/vitalstack/auth-service/internal/model"
	"github.com/vitalstack/auth-service/internal/queue"
	"github.com/vitalstack/auth-service/internal/repository"
	"github.com/vitalstack/auth-service/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Events EventSink // optional; nil disables audit events
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, ev EventSink) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Events: ev}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type userResp struct {
	User model.Public `json:"user"`
}

// Register creates a user and issues a session immediately so the caller is
// logged in right after signup.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		// Default the display name to the email local part.
		name = req.Email[:strings.Index(req.Email+"@", "@")]
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, name, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if err := h.issueSession(c, ctx, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}

	h.publish(queue.EventRegister, u)
	return c.JSON(http.StatusCreated, userResp{User: u.Public()})
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password are deliberately indistinguishable.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := h.issueSession(c, ctx, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}

	h.publish(queue.EventLogin, u)
	return c.JSON(http.StatusOK, userResp{User: u.Public()})
}

// Refresh exchanges a live refresh token for a new pair, rotating the
// refresh credential. Validation order matters: cryptographic validity,
// then store presence, then owning-user existence. Each step short-circuits
// so a forged-but-expired token never reaches a store lookup.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := refreshTokenFrom(c)
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing refresh token"})
	}
	if _, err := utils.ParseRefresh(h.Cfg.RefreshSecret, raw); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashToken(raw)
	rec, err := h.Tokens.Lookup(ctx, hash)
	if err != nil {
		if err == repository.ErrTokenNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token revoked"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	u, err := h.Users.GetByID(ctx, rec.UserID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user no longer exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	// Rotate: the presented token dies here, win or lose.
	_ = h.Tokens.Delete(ctx, hash)

	if err := h.issueSession(c, ctx, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "token refreshed"})
}

// Logout deletes the presented refresh token (best-effort) and clears both
// cookies. It succeeds regardless of whether a token existed.
func (h *AuthHandler) Logout(c echo.Context) error {
	if raw := refreshTokenFrom(c); raw != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.Tokens.Delete(ctx, utils.HashToken(raw)); err != nil {
			// Non-fatal: the client is logged out either way.
			log.Printf("logout: delete refresh token: %v", err)
		}
		if id, err := utils.ParseRefresh(h.Cfg.RefreshSecret, raw); err == nil {
			h.publish(queue.EventLogout, model.User{ID: id.UserID, Email: id.Email})
		}
	}
	utils.ClearSession(c, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Verify is a lightweight liveness probe for the session: signature and
// expiry of the access cookie only, no store access.
func (h *AuthHandler) Verify(c echo.Context) error {
	raw := accessTokenFrom(c)
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no token"})
	}
	if _, err := utils.ParseAccess(h.Cfg.AccessSecret, raw); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired or invalid"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Me resolves the authenticated subject to a user record. Runs behind
// JWTAuth; 404 means the user was deleted after the token was issued.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, userResp{User: u.Public()})
}

// issueSession mints an access+refresh pair for u, persists the refresh
// hash and writes both session cookies.
func (h *AuthHandler) issueSession(c echo.Context, ctx context.Context, u model.User) error {
	id := utils.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
	access, err := utils.NewAccessToken(h.Cfg.AccessSecret, id, h.Cfg.AccessTTLMin)
	if err != nil {
		return err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshSecret, id, h.Cfg.RefreshTTLDays)
	if err != nil {
		return err
	}
	if err := h.Tokens.Store(ctx, u.ID, utils.HashToken(refresh.Token), refresh.Exp); err != nil {
		return err
	}
	utils.WriteSession(c, access.Token, refresh.Token,
		time.Until(access.Exp), time.Until(refresh.Exp), h.Cfg.IsProd())
	return nil
}

// publish sends an audit event without blocking or failing the request.
func (h *AuthHandler) publish(typ string, u model.User) {
	if h.Events == nil {
		return
	}
	ev := queue.AuthEvent{
		Type:   typ,
		UserID: u.ID,
		Email:  u.Email,
		At:     time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Events.PublishAuthEvent(ctx, ev); err != nil {
			log.Printf("audit: publish %s event: %v", typ, err)
		}
	}()
}

// refreshTokenFrom reads the refresh token from the session cookie, falling
// back to a JSON body for non-browser clients.
func refreshTokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(utils.RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req)
	return strings.TrimSpace(req.RefreshToken)
}

// accessTokenFrom reads the access token cookie with a bearer fallback.
func accessTokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(utils.AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
