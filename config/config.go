package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds every environment-sourced setting for the timer daemon.
// Fields are parsed by caarlos0/env and checked by go-playground/validator
// before the daemon does anything else.
type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090" validate:"required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	// NormalQueueCap overrides the scheduler's default normal-queue
	// overflow cap (sched.defaultNormalQueueCap). 0 disables the cap.
	NormalQueueCap int `env:"NORMAL_QUEUE_CAP" envDefault:"500" validate:"min=0"`

	// RescanCron is a standard five-field cron expression controlling
	// how often internal/rescan enqueues a library rescan. Empty
	// disables the rescan timer entirely.
	RescanCron string `env:"RESCAN_CRON" envDefault:"*/30 * * * *"`

	// DatabaseURL is optional: storage-backed virtual-library
	// registration is skipped entirely when it is empty.
	DatabaseURL string `env:"DATABASE_URL"`

	// VirtualLibraryFolders are registered into internal/storage at
	// startup when DatabaseURL is set. Ignored otherwise.
	VirtualLibraryFolders []string `env:"VIRTUAL_LIBRARY_FOLDERS" envSeparator:","`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
