package main

import (
	"context"
	"log/slog"

	"tasktracker/config"
	"tasktracker/internal/domain/lifecycle"
	"tasktracker/internal/errors"
	logs "tasktracker/internal/infra/log"
	"tasktracker/internal/infra/persistence/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// configLoader is swapped in tests.
type configLoader func() (*config.Config, error)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tasktrackerctl",
		Short: "Administrative commands for the task tracker",
		Long: `Administrative commands for the task tracker.

Configuration is read the same way as the server: config/config.yaml,
overridden by environment variables such as AUTH_SECRET and DATABASE_URL.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newMigrateCmd(config.Load))
	rootCmd.AddCommand(newSeedCmd(config.Load))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// openStore connects and brings the schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (*gorm.DB, *slog.Logger, func(), error) {
	logger, err := logs.New(logs.Params{Config: cfg})
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	migrateCtx, cancel := context.WithTimeout(ctx, lifecycle.MigrationTimeout)
	defer cancel()

	if err := database.Migrate(migrateCtx, db); err != nil {
		closeFn()

		return nil, nil, nil, errors.Wrap(err, "migrate schema")
	}

	return db, logger, closeFn, nil
}
