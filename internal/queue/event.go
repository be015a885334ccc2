// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// Audit event types.
const (
	EventRegister = "register"
	EventLogin    = "login"
	EventLogout   = "logout"
)

// AuthEvent is published on the auth.events queue whenever a session is
// created or torn down. Downstream consumers can log, alert on credential
// stuffing, or feed analytics without touching the primary database.
type AuthEvent struct {
	Type   string `json:"type"` // register | login | logout
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	At     string `json:"at"` // RFC3339 UTC
}
