// Package handler implements the HTTP endpoints. Handlers depend on small
// store interfaces rather than concrete repositories so tests can substitute
// in-memory fakes; the repository types satisfy them directly.
package handler

import (
	"context"
	"time"

	"github.com/vitalstack/auth-service/internal/model"
	"github.com/vitalstack/auth-service/internal/queue"
)

// UserStore is the credential store surface the handlers need.
type UserStore interface {
	Create(ctx context.Context, email, password, name string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateMetrics(ctx context.Context, id uint64, patch model.MetricsPatch) (model.FitnessMetrics, error)
	UpsertFederated(ctx context.Context, externalID, email, name, avatarURL string) (model.User, bool, error)
}

// TokenStore is the refresh token store surface the handlers need.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Lookup(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID uint64) error
}

// EventSink receives auth audit events. A nil sink disables publishing.
type EventSink interface {
	PublishAuthEvent(ctx context.Context, ev queue.AuthEvent) error
}
