package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vitalstack/auth-service/internal/model"
)

// TokenRepo is the refresh token store. Rows hold only the SHA-256 hash of
// the token string. Deletion is the sole revocation mechanism: once a row is
// gone the credential is permanently dead, there is no tombstone list.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row with its expiry.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// Lookup returns the live record for a token hash. Rows past their expiry
// are rejected here even if the purge has not removed them yet, which keeps
// TTL semantics independent of purge timing.
func (r *TokenRepo) Lookup(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return model.RefreshToken{}, ErrTokenNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		return model.RefreshToken{}, ErrTokenNotFound
	}
	return t, nil
}

// Delete removes a token row by hash. Deleting an absent row is not an
// error; two racing refresh calls resolve with one winner and one 401.
func (r *TokenRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// DeleteAllForUser removes every outstanding refresh token owned by a user,
// logging the user out of all sessions across devices.
func (r *TokenRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}

// DeleteExpired purges rows past their expiry and reports how many were
// removed. MySQL has no TTL indexes, so a periodic caller stands in for the
// data store's expiry monitor.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
