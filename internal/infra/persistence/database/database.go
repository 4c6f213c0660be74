// Package database contains the GORM implementation of the persistence layer.
// PostgreSQL is used when a postgres:// URL is configured; otherwise an embedded SQLite file.
package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"tasktracker/config"
	"tasktracker/internal/domain/lifecycle"
	"tasktracker/internal/errors"
	"tasktracker/internal/infra/metrics"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

const (
	dbPoolMonitorInterval       = 5 * time.Second
	dbPoolWarnDurationThreshold = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// New opens the store and ties its lifetime to the fx application: the start
// hook pings and migrates, the stop hook closes the pool.
func New(params Params) (*gorm.DB, error) {
	db, err := Open(params.Config, params.Logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	if params.Metrics != nil {
		if err := params.Metrics.RegisterDB(sqlDB, params.Config.Env.ServiceName); err != nil {
			params.Logger.Warn("Database pool metrics not registered", slog.Any("error", err))
		}
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping database")
			}

			if params.Config.Database.AutoMigrate {
				migrateCtx, cancelMigrate := context.WithTimeout(startCtx, lifecycle.MigrationTimeout)
				defer cancelMigrate()

				if err := Migrate(migrateCtx, db); err != nil {
					return err
				}
				params.Logger.Info("Database schema migrated")
			}

			go monitorDBPool(monitorCtx, params.Logger, sqlDB, dbPoolMonitorInterval)

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancelMonitor()

			return errors.WithStack(sqlDB.Close())
		},
	})

	return db, nil
}

// Open connects to the configured store and applies pool settings.
// It does not ping; callers outside fx should ping or migrate before use.
func Open(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database
	if dbCfg == nil {
		dbCfg = &config.DatabaseConfig{SQLitePath: "./tasktracker.db"}
	}

	dialector, driver, err := dialectorFor(dbCfg)
	if err != nil {
		return nil, err
	}
	if len(dbCfg.Replicas) > 0 && driver != driverPostgres {
		return nil, errors.Errorf("read replicas require a postgres primary, got %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// Explicit transactions go through the transaction manager.
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 newGormSlogLogger(logger, cfg),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}

	if len(dbCfg.Replicas) > 0 {
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicaDialectors(dbCfg.Replicas),
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxOpenConns(dbCfg.Pool.MaxOpenConns).
			SetMaxIdleConns(dbCfg.Pool.MaxIdleConns).
			SetConnMaxLifetime(dbCfg.Pool.ConnMaxLifetime).
			SetConnMaxIdleTime(dbCfg.Pool.ConnMaxIdleTime)

		if err := db.Use(resolver); err != nil {
			return nil, errors.Wrap(err, "failed to register read replicas")
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}
	applyPool(sqlDB, dbCfg.Pool)

	if logger != nil {
		logger.Info("Database opened",
			slog.String("driver", driver),
			slog.Int("replicas", len(dbCfg.Replicas)),
			slog.Int("maxOpenConns", dbCfg.Pool.MaxOpenConns),
		)
	}

	return db, nil
}

func applyPool(sqlDB *sql.DB, pool config.PoolConfig) {
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	// Recycled connections stand in for pre-ping: database/sql discards broken
	// connections on first use and dials a fresh one.
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
}

func monitorDBPool(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB, interval time.Duration) {
	if logger == nil || sqlDB == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := sqlDB.Stats()
			waitDelta := cur.WaitCount - prev.WaitCount
			waitDurationDelta := cur.WaitDuration - prev.WaitDuration

			if waitDelta > 0 {
				attrs := []slog.Attr{
					slog.Int64("waitCountDelta", waitDelta),
					slog.Duration("waitDurationDelta", waitDurationDelta),
					slog.Duration("avgWait", waitDurationDelta/time.Duration(waitDelta)),
					slog.Int("maxOpenConns", cur.MaxOpenConnections),
					slog.Int("openConns", cur.OpenConnections),
					slog.Int("inUseConns", cur.InUse),
					slog.Int("idleConns", cur.Idle),
				}
				if waitDurationDelta >= dbPoolWarnDurationThreshold {
					logger.LogAttrs(ctx, slog.LevelWarn, "Database pool wait detected", attrs...)
				} else {
					logger.LogAttrs(ctx, slog.LevelDebug, "Database pool wait observed", attrs...)
				}
			}

			prev = cur
		}
	}
}
