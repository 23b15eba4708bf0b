package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port"        validate:"required,gt=0,lt=65536"`
	LogLevel    string `mapstructure:"log_level"   validate:"required,oneof=debug info warn error"`
	LogFormat   string `mapstructure:"log_format"  validate:"required,oneof=json text"`
	Environment string `mapstructure:"environment" validate:"required"`
	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Requests without an Origin header (server-to-server, curl) are always allowed.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the task/user store backend.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	// URL is a Postgres connection URL, or a sqlite DSN when Driver is "sqlite".
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	// AutoMigrate applies pending migrations on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=10080"` // Max 1 week
	BcryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// RateLimitConfig controls the per-client request limits.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Backend   string        `mapstructure:"backend"    validate:"omitempty,oneof=memory redis"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	Window    time.Duration `mapstructure:"window"     validate:"gt=0"`
	GlobalMax int           `mapstructure:"global_max" validate:"gt=0"`
	AuthMax   int           `mapstructure:"auth_max"   validate:"gt=0"`
}
