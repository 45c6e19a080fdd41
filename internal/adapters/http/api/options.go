package api

import (
	"net/http"

	"github.com/okian/idscan/pkg/logger"
)

type serverConfig struct {
	maxHistoryLimit int
	feed            http.Handler
	logger          logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

// WithMaxHistoryLimit caps the limit accepted by /scans/history.
func WithMaxHistoryLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxHistoryLimit = n
		}
	}
}

// WithFeed mounts a live feed handler at /ws.
func WithFeed(h http.Handler) Option {
	return func(c *serverConfig) {
		c.feed = h
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
