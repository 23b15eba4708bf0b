package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
)

// loadAppConfig loads the application configuration from environment variables or config file.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupAppLogger configures the process-wide logger and logs the loaded
// configuration without secrets.
func setupAppLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		slog.String("rate_limit_backend", cfg.RateLimit.Backend))
	l.Debug("auth configuration",
		slog.Bool("jwt_secret_present", cfg.Auth.JWTSecret != ""),
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	return l, nil
}
