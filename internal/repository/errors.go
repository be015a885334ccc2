// Package repository implements the persisted stores on MySQL. Lookup
// helpers return sentinel errors instead of raising through the call chain;
// the handler layer translates each failure to an HTTP status exactly once.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique email
// index. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a user lookup matches no row. Depending on
// the endpoint this maps to 401 (login, refresh) or 404 (me).
var ErrNotFound = errors.New("user not found")

// ErrTokenNotFound is returned when a refresh token is absent from the
// store or already past its expiry. Either way the credential is dead and
// handlers respond 401.
var ErrTokenNotFound = errors.New("refresh token not found")
