package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and unexpected algorithms.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for a well-formed token whose exp has passed.
	ErrTokenExpired = errors.New("token expired")
)

// TokenService issues and verifies stateless bearer tokens bound to a user ID.
type TokenService interface {
	// Issue signs a token for subject that expires after ttl.
	Issue(subject uuid.UUID, ttl time.Duration) (string, error)

	// Verify returns the subject of a valid, unexpired token.
	// It never panics on attacker-controlled input.
	Verify(token string) (uuid.UUID, error)

	// DefaultTTL is the lifetime of an ordinary login token.
	DefaultTTL() time.Duration

	// LongLivedTTL is the lifetime of a "remember me" login token.
	LongLivedTTL() time.Duration
}
