package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type syncUserReq struct {
	ExternalID string `json:"externalId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	AvatarURL  string `json:"avatarUrl"`
}

// SyncUser upserts a federated sign-in into the credential store: match on
// external id, else link an existing password account by email, else create
// a password-less account. Responds 200 for an update and 201 for a create.
func (h *AuthHandler) SyncUser(c echo.Context) error {
	var req syncUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.ExternalID == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "external id and email are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, created, err := h.Users.UpsertFederated(ctx, req.ExternalID, req.Email, req.Name, req.AvatarURL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sync user failed"})
	}
	status := http.StatusOK
	verb := "updated"
	if created {
		status = http.StatusCreated
		verb = "created"
	}
	return c.JSON(status, echo.Map{"user": u.Public(), "status": verb})
}
