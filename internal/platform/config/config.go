package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, loaded from environment
// variables. Defaults target the local Docker workflow; deployments override
// per environment.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// StorageBackend selects the persistence adapter: "postgres" or "memory".
	// The memory backend exists for local development and demos only.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// RedisAddr enables the Redis event publisher when set. Empty means
	// events are logged locally and dropped.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	EventChannel  string `env:"EVENT_CHANNEL" envDefault:"fleet.mission-events"`

	// DevSubject is the fallback operator subject for the dev auth shim.
	DevSubject string `env:"DEV_SUBJECT"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses configuration from the environment and validates the
// combinations that cannot be expressed as per-field defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.StorageBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	case "memory":
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be postgres or memory, got %q", cfg.StorageBackend)
	}

	return cfg, nil
}
