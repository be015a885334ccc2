package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table. Each token
// belongs to a user; the plain token string is never stored, only its
// SHA-256 hash. Rows past ExpiresAt are rejected on lookup and removed by a
// periodic purge, so a row's presence is the single source of truth for
// whether a refresh credential is still usable.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
