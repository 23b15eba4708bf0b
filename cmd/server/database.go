package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/platform/postgres"
	"github.com/phrazzld/tasks-api/internal/platform/sqlite"
	"github.com/phrazzld/tasks-api/internal/store"
)

// dataStores are the persistence backends selected by configuration.
type dataStores struct {
	tasks  store.TaskStore
	users  store.UserStore
	closer func() error
}

func (d *dataStores) close(logger *slog.Logger) {
	if d == nil || d.closer == nil {
		return
	}
	if err := d.closer(); err != nil {
		logger.Error("error closing database connection", slog.String("error", err.Error()))
	}
}

// setupAppDatabase opens the configured backend and returns its stores.
// Postgres migrations run first when auto_migrate is set; sqlite migrates
// its schema on open.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dataStores, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		gdb, err := sqlite.Open(cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite connection pool: %w", err)
		}
		logger.Info("database connection established", slog.String("driver", "sqlite"))
		return &dataStores{
			tasks:  sqlite.NewTaskStore(gdb, logger),
			users:  sqlite.NewUserStore(gdb, logger),
			closer: sqlDB.Close,
		}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, db, "up", logger); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &dataStores{
			tasks:  postgres.NewPostgresTaskStore(db, logger),
			users:  postgres.NewPostgresUserStore(db, logger),
			closer: db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// handleMigrations runs a goose command against the configured Postgres
// database. sqlite schemas are managed on open, so only "up" is accepted.
func handleMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		if command != "up" {
			return fmt.Errorf("migration command %q is not supported for sqlite", command)
		}
		data, err := setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		data.close(logger)
		return nil
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, 1, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	logger.Info("executing migrations", slog.String("command", command))
	return postgres.Migrate(ctx, db, command, logger)
}
