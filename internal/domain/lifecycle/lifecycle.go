// Package lifecycle holds timeouts shared by start and stop hooks.
package lifecycle

import "time"

const (
	// DefaultTimeout bounds a single start or stop hook, such as a store ping or server shutdown.
	DefaultTimeout = 10 * time.Second

	// MigrationTimeout bounds schema migration at startup.
	MigrationTimeout = 60 * time.Second
)
