// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration values for the service.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// DatabaseURL selects the store: postgres://… or sqlite:path. Required.
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// LogLevel controls the minimum log level.
	// Valid values: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to the Vite dev server. Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// JWTSecret is the HS256 key session tokens are signed with.
	// Only commands that verify or issue tokens require it; see RequireJWT.
	JWTSecret string `env:"JWT_SECRET"`

	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"placekeeper"`
	SessionCookie string `env:"SESSION_COOKIE" envDefault:"pk_session"`

	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// RequireFinalStep rejects Complete unless the tour is on its last step.
	// Off by default: completion is forced from any phase.
	RequireFinalStep bool `env:"ONBOARDING_REQUIRE_FINAL_STEP" envDefault:"false"`

	// OTelEndpoint is an OTLP/HTTP traces URL. Tracing is off when empty.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads configuration from the process environment.
// Returns an error naming any required variable that is not set.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, errors.New("config: MAX_BODY_BYTES must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, errors.New("config: SHUTDOWN_TIMEOUT must be positive")
	}
	return cfg, nil
}

// RequireJWT reports an error when no signing key is configured.
func (c Config) RequireJWT() error {
	if c.JWTSecret == "" {
		return errors.New("config: required environment variable JWT_SECRET is not set")
	}
	return nil
}

// SlogLevel returns the configured level, falling back to info when LOG_LEVEL
// does not name one.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// trimAll trims every entry and drops the empty ones.
func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
