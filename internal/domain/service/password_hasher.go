// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordHasher defines the interface for password hashing and verification.
// Implementations apply the same input normalisation at hash time and at check time.
type PasswordHasher interface {
	// Hash generates a salted hash from a plaintext password.
	// Hashing the same password twice yields different strings.
	Hash(password string) (string, error)

	// Check compares a plaintext password with a hash. Malformed hashes do not match.
	Check(password, hash string) bool
}
