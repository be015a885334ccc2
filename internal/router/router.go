package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/vitalstack/auth-service/internal/config"
	"github.com/vitalstack/auth-service/internal/handler"
	"github.com/vitalstack/auth-service/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication or handler
// state. Currently only the health probe for load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the session-lifecycle endpoints. The credential
// endpoints under /api/auth sit behind the Redis token bucket; verify stays
// outside it because clients poll it every minute. Me and the metrics
// endpoints require a live access token via JWTAuth.
func RegisterAuth(e *echo.Echo, cfg config.Config, a *handler.AuthHandler, m *handler.MetricsHandler, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/api/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/sync-user", a.SyncUser)

	// Verify is the polling liveness probe; no limiter, no store access.
	e.GET("/api/auth/verify", a.Verify)

	auth := e.Group("/api", middleware.JWTAuth(cfg.AccessSecret))
	auth.GET("/auth/me", a.Me)
	auth.GET("/user/metrics", m.Get)
	auth.POST("/user/metrics", m.Update)

	admin := auth.Group("/admin", middleware.RequireRole("admin"))
	admin.DELETE("/users/:id/sessions", a.RevokeSessions)
}
