// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"tasktracker/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when Create hits the unique email constraint.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines the standard operations for user persistence.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by exact email match.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// ExistsByEmail reports whether an account already uses email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create persists a new user. The store enforces email uniqueness.
	Create(ctx context.Context, user *entity.User) error
}
