// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/idscan/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory queue of accepted scans awaiting persistence.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`

	// DatabasePath is the SQLite file scans are persisted to.
	DatabasePath string `koanf:"database_path"`

	// BranchesFile optionally points to a TOML file of branch display overrides.
	BranchesFile string `koanf:"branches_file"`

	// MaxHistoryLimit caps GET /scans/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// FeedBufferSize is how many messages a live feed client may lag behind.
	FeedBufferSize int `koanf:"feed_buffer_size"`

	// AllowedOrigins is a comma-separated list of websocket origins. Empty allows all.
	AllowedOrigins string `koanf:"allowed_origins"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueSize:         1024,
		WorkerCount:       runtime.NumCPU(),
		DatabasePath:      "idscan.db",
		MaxHistoryLimit:   500,
		FeedBufferSize:    32,
		ShutdownTimeoutMS: 10_000,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case strings.TrimSpace(c.DatabasePath) == "":
		return fmt.Errorf("%w: database_path must not be empty", ErrInvalidConfig)
	case c.MaxHistoryLimit < 1:
		return fmt.Errorf("%w: max_history_limit must be positive, got %d", ErrInvalidConfig, c.MaxHistoryLimit)
	case c.FeedBufferSize < 1:
		return fmt.Errorf("%w: feed_buffer_size must be positive, got %d", ErrInvalidConfig, c.FeedBufferSize)
	case c.ShutdownTimeoutMS < 1:
		return fmt.Errorf("%w: shutdown_timeout_ms must be positive, got %d", ErrInvalidConfig, c.ShutdownTimeoutMS)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Origins returns AllowedOrigins split on commas, without blanks.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
