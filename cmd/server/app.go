package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/tasks-api/internal/api"
	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/service/auth"
	"github.com/redis/go-redis/v9"
)

// application holds the shared dependencies of the running server and
// releases them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	data   *dataStores

	provider    auth.IdentityProvider
	taskService *service.TaskService
	redis       *redis.Client
}

// newApplication wires services on top of the opened stores.
func newApplication(cfg *config.Config, logger *slog.Logger, data *dataStores) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		data:   data,
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.provider, err = auth.NewLocalProvider(data.users, jwtService, auth.NewBcryptVerifier(cfg.Auth.BcryptCost), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity provider: %w", err)
	}

	app.taskService, err = service.NewTaskService(data.tasks, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router, err := app.setupRouter()
	if err != nil {
		return err
	}
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// setupRouter builds the API router with the configured CORS policy and
// rate limits.
func (app *application) setupRouter() (http.Handler, error) {
	global, authLimit := app.rateLimiters()

	a, err := api.New(api.Options{
		Provider:    app.provider,
		Tasks:       app.taskService,
		AuthLimit:   authLimit,
		Environment: app.config.Server.Environment,
		Logger:      app.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build API: %w", err)
	}

	extra := []func(http.Handler) http.Handler{apiCORS(app.config)}
	if global != nil {
		extra = append(extra, global)
	}
	return a.Router(extra...), nil
}

// cleanup releases external resources.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", slog.String("error", err.Error()))
		}
	}
	app.data.close(app.logger)
	app.logger.Info("application shutdown completed")
}
