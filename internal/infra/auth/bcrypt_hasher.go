// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"tasktracker/config"
	"tasktracker/internal/domain/service"
	"tasktracker/internal/errors"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// legacyPBKDF2Prefix marks passlib pbkdf2_sha256 hashes written by the previous
// deployment. They are verified but never produced.
const legacyPBKDF2Prefix = "$pbkdf2-sha256$"

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost int
}

// NewBcryptHasher builds the hasher with the configured cost.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := bcrypt.DefaultCost
	if cfg != nil && cfg.Auth != nil {
		cost = cfg.Auth.BcryptCost
	}

	return NewBcryptHasherWithCost(cost)
}

// NewBcryptHasherWithCost falls back to bcrypt.DefaultCost for out-of-range costs.
func NewBcryptHasherWithCost(cost int) service.PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &bcryptHasher{cost: cost}
}

// Hash generates a salted bcrypt hash of the normalised password.
// There is no weaker fallback: a bcrypt failure is returned to the caller.
func (h *bcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(service.NormalizePassword(password)), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt hash")
	}

	return string(hash), nil
}

// Check compares a plaintext password with a bcrypt or legacy pbkdf2 hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	normalized := service.NormalizePassword(password)

	if strings.HasPrefix(hash, legacyPBKDF2Prefix) {
		return checkPBKDF2SHA256(normalized, hash)
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(normalized)) == nil
}

// checkPBKDF2SHA256 verifies "$pbkdf2-sha256$<rounds>$<salt>$<checksum>", where
// salt and checksum use passlib's adapted base64 ("." instead of "+", no padding).
func checkPBKDF2SHA256(password, hash string) bool {
	parts := strings.Split(strings.TrimPrefix(hash, legacyPBKDF2Prefix), "$")
	if len(parts) != 3 {
		return false
	}

	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds < 1 {
		return false
	}

	salt, err := decodeAdaptedBase64(parts[1])
	if err != nil {
		return false
	}

	want, err := decodeAdaptedBase64(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, rounds, len(want), sha256.New)

	return subtle.ConstantTimeCompare(got, want) == 1
}

func decodeAdaptedBase64(s string) ([]byte, error) {
	b, err := base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
	if err != nil {
		return nil, errors.Wrap(err, "decode adapted base64")
	}

	return b, nil
}
