// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can sign in and own tasks.
// Users are created on registration and are never mutated afterwards.
type User struct {
	ID           uuid.UUID // Globally unique identifier, assigned at registration.
	Email        string    // Login identifier. Unique across users and compared case-sensitively.
	PasswordHash string    // Opaque credential hash. Never leaves the service.
	CreatedAt    time.Time // When the account was registered.
}
