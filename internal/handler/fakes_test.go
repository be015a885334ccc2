package handler_test

import (
	"context"
	"sync"
	"time"

	"github.com/vitalstack/auth-service/internal/model"
	"github.com/vitalstack/auth-service/internal/repository"
	"github.com/vitalstack/auth-service/internal/utils"
)

// In-memory stands-ins for the MySQL repositories, honoring the same
// sentinel-error contract.

type fakeUsers struct {
	mu   sync.Mutex
	seq  uint64
	rows map[uint64]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: make(map[uint64]*model.User)}
}

func (f *fakeUsers) Create(_ context.Context, email, password, name string, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	f.seq++
	f.rows[f.seq] = &model.User{
		ID: f.seq, Email: email, PasswordHash: hash, Name: name,
		Role: model.RoleUser, Status: model.StatusActive,
	}
	return f.seq, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.rows[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) UpdateMetrics(_ context.Context, id uint64, patch model.MetricsPatch) (model.FitnessMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return model.FitnessMetrics{}, repository.ErrNotFound
	}
	patch.Apply(&u.Metrics)
	return u.Metrics, nil
}

func (f *fakeUsers) UpsertFederated(_ context.Context, externalID, email, name, avatarURL string) (model.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.ExternalID == externalID {
			u.Email = email
			if name != "" {
				u.Name = name
			}
			if avatarURL != "" {
				u.AvatarURL = avatarURL
			}
			return *u, false, nil
		}
	}
	for _, u := range f.rows {
		if u.Email == email {
			u.ExternalID = externalID
			if name != "" {
				u.Name = name
			}
			if avatarURL != "" {
				u.AvatarURL = avatarURL
			}
			return *u, false, nil
		}
	}
	f.seq++
	u := &model.User{
		ID: f.seq, Email: email, ExternalID: externalID, Name: name,
		AvatarURL: avatarURL, Role: model.RoleUser, Status: model.StatusActive,
	}
	f.rows[f.seq] = u
	return *u, true, nil
}

func (f *fakeUsers) delete(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]model.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{rows: make(map[string]model.RefreshToken)}
}

func (f *fakeTokens) Store(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[tokenHash] = model.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: exp}
	return nil
}

func (f *fakeTokens) Lookup(_ context.Context, tokenHash string) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[tokenHash]
	if !ok || time.Now().UTC().After(t.ExpiresAt) {
		return model.RefreshToken{}, repository.ErrTokenNotFound
	}
	return t, nil
}

func (f *fakeTokens) Delete(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, tokenHash)
	return nil
}

func (f *fakeTokens) DeleteAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, t := range f.rows {
		if t.UserID == userID {
			delete(f.rows, h)
		}
	}
	return nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}
