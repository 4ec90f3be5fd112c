// Package config loads the tuning service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Experiments struct {
		// MaxConcurrent caps the number of optimization runs in flight.
		MaxConcurrent int `env:"EXPERIMENT_MAX_CONCURRENT" envDefault:"4"`
		// DefaultTimeout bounds runs that do not set their own timeout.
		DefaultTimeout time.Duration `env:"EXPERIMENT_DEFAULT_TIMEOUT" envDefault:"1h"`
		// Retention is how long finished runs stay queryable.
		Retention time.Duration `env:"EXPERIMENT_RETENTION" envDefault:"24h"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
