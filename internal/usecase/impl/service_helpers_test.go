package impl

import (
	"io"
	"log/slog"
	"time"

	"tasktracker/config"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(minDigits int) *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			TokenTTL:          24 * time.Hour,
			LongLivedTokenTTL: 30 * 24 * time.Hour,
			BcryptCost:        10,
		},
		PasswordPolicy: &config.PasswordPolicyConfig{MinDigits: minDigits},
	}
}

func fixedClock() time.Time {
	return fixedNow
}
