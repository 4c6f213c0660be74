package service

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxPasswordBytes is the longest input bcrypt accepts. Longer passwords are
// truncated to this many bytes before hashing and before checking.
const MaxPasswordBytes = 72

// NormalizePassword truncates password to MaxPasswordBytes and drops any bytes
// that no longer form valid UTF-8, such as a multi-byte rune cut in half.
func NormalizePassword(password string) string {
	if len(password) > MaxPasswordBytes {
		password = password[:MaxPasswordBytes]
	}

	return strings.ToValidUTF8(password, "")
}

// PasswordPolicy is the minimum-strength rule applied at registration.
// Counting digits is a heuristic, not an entropy estimate.
type PasswordPolicy struct {
	MinDigits int
}

// PasswordPolicyError describes why a password was rejected.
type PasswordPolicyError struct {
	MinDigits int
	Digits    int
}

func (e *PasswordPolicyError) Error() string {
	return fmt.Sprintf("Password must contain at least %d digits", e.MinDigits)
}

// Validate checks the normalised form of password, the same bytes the hasher sees.
func (p PasswordPolicy) Validate(password string) error {
	digits := CountDigits(NormalizePassword(password))
	if digits < p.MinDigits {
		return &PasswordPolicyError{MinDigits: p.MinDigits, Digits: digits}
	}

	return nil
}

// CountDigits counts decimal digit characters, including non-ASCII digits.
func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}

	return n
}
