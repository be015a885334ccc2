package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vitalstack/auth-service/internal/middleware"
	"github.com/vitalstack/auth-service/internal/model"
	"github.com/vitalstack/auth-service/internal/repository"
)

// MetricsHandler serves the fitness-metrics endpoints. Runs behind JWTAuth.
type MetricsHandler struct {
	Users UserStore
}

func NewMetricsHandler(u UserStore) *MetricsHandler { return &MetricsHandler{Users: u} }

// Update merges a partial metrics patch into the caller's record. Absent
// fields are untouched and the bmiHistoryEntry, when present, is appended to
// the history list. An empty patch is rejected rather than silently no-oped.
func (h *MetricsHandler) Update(c echo.Context) error {
	var patch model.MetricsPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if patch.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	merged, err := h.Users.UpdateMetrics(ctx, middleware.UserID(c), patch)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update metrics failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"fitnessMetrics": merged})
}

// Get returns the caller's current metrics document.
func (h *MetricsHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"fitnessMetrics": u.Metrics})
}
