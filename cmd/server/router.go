package main

import (
	"net/http"

	"github.com/phrazzld/tasks-api/internal/api/middleware"
	"github.com/phrazzld/tasks-api/internal/config"
)

// Redis key prefixes for the two limiters.
const (
	globalLimitPrefix = "tasks-api:ratelimit:global:"
	authLimitPrefix   = "tasks-api:ratelimit:auth:"
)

// rateLimiters returns the global and credential-endpoint limit middleware,
// or nils when rate limiting is disabled.
func (app *application) rateLimiters() (global, auth func(http.Handler) http.Handler) {
	rl := app.config.RateLimit
	if !rl.Enabled {
		return nil, nil
	}

	var globalLimiter, authLimiter middleware.Limiter
	if app.redis != nil {
		globalLimiter = middleware.NewRedisLimiter(app.redis, globalLimitPrefix, rl.GlobalMax, rl.Window)
		authLimiter = middleware.NewRedisLimiter(app.redis, authLimitPrefix, rl.AuthMax, rl.Window)
	} else {
		globalLimiter = middleware.NewMemoryLimiter(rl.GlobalMax, rl.Window)
		authLimiter = middleware.NewMemoryLimiter(rl.AuthMax, rl.Window)
	}

	app.logger.Info("rate limiting enabled",
		"backend", rl.Backend,
		"window", rl.Window,
		"global_max", rl.GlobalMax,
		"auth_max", rl.AuthMax)

	return middleware.RateLimit(globalLimiter, "global", middleware.GlobalLimitMessage),
		middleware.RateLimit(authLimiter, "auth", middleware.AuthLimitMessage)
}

func apiCORS(cfg *config.Config) func(http.Handler) http.Handler {
	return middleware.CORS(cfg.Server.CORSAllowedOrigins)
}
