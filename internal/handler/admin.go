package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// RevokeSessions deletes every outstanding refresh token for a user, logging
// them out of all devices at once. Runs behind RequireRole("admin"); the
// typical caller is support handling a compromised or suspended account.
// Outstanding access tokens stay valid until they expire, so revocation takes
// effect within one access TTL.
func (h *AuthHandler) RevokeSessions(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.DeleteAllForUser(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke sessions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "sessions revoked"})
}
