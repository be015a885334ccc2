package model

import "time"

// Roles stored on a user record and carried in the access token's role claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User mirrors the `users` table. PasswordHash is empty for federated-only
// accounts; ExternalID is empty for password accounts. Both may be set when a
// password account is later linked to a federated identity by matching email.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string // empty for federated accounts
	ExternalID   string // federated identity subject, empty otherwise
	Name         string
	AvatarURL    string
	Role         string
	Status       string
	Metrics      FitnessMetrics
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public is the projection of a user that is safe to return in an HTTP
// response. The password hash never appears in any serialized form.
type Public struct {
	ID      uint64         `json:"id"`
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Role    string         `json:"role"`
	Metrics FitnessMetrics `json:"fitnessMetrics"`
}

// Public builds the response-safe projection.
func (u User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Metrics: u.Metrics}
}
