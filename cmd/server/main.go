// Package main implements the entry point for the tasks API server, which
// serves per-user task lists over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status, version, reset) and exit")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("tasks-api: %v", err)
	}
}

// run loads configuration, then either executes a migration command or
// serves HTTP until SIGINT/SIGTERM.
func run(migrateCmd string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if migrateCmd != "" {
		return handleMigrations(ctx, cfg, migrateCmd, logger)
	}

	data, err := setupAppDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, logger, data)
	if err != nil {
		data.close(logger)
		return err
	}

	logger.Info("starting tasks-api",
		slog.Int("port", cfg.Server.Port),
		slog.String("database_driver", cfg.Database.Driver))
	return app.Run(ctx)
}
