package database

import (
	"context"

	"tasktracker/internal/errors"
	"tasktracker/internal/infra/persistence/model"

	"gorm.io/gorm"
)

// Migrate creates or updates the users and tasks tables. It is idempotent.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	return nil
}
