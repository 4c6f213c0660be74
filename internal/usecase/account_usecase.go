// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"tasktracker/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenTypeBearer is the token_type reported with every issued access token.
const TokenTypeBearer = "bearer"

// --- Input DTOs ---

// RegisterInput defines the data required to create an account.
type RegisterInput struct {
	Email    string
	Password string
}

// LoginInput defines the data required for a user to log in.
// RememberMe selects the long-lived token lifetime.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// --- Output DTOs ---

// UserOutput is the public view of an account. It never carries the password hash.
type UserOutput struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserOutput projects a user entity to its public view.
func NewUserOutput(user *entity.User) *UserOutput {
	return &UserOutput{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// LoginOutput returns the access token together with the authenticated user.
type LoginOutput struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *UserOutput `json:"user"`
}

// AccountUsecase defines the interface for registration and sign-in.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AccountUsecase interface {
	// Register creates an account after checking email uniqueness and the password policy.
	Register(ctx context.Context, input *RegisterInput) (*UserOutput, error)

	// Login exchanges credentials for an access token. Unknown email and wrong
	// password fail with the same error.
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// GetSelf returns the account identified by an already verified token subject.
	GetSelf(ctx context.Context, userID uuid.UUID) (*UserOutput, error)

	// Provision registers the account unless the email is already taken, in which
	// case the existing account is returned and created is false.
	Provision(ctx context.Context, input *RegisterInput) (user *UserOutput, created bool, err error)
}
