package feed

import "github.com/okian/idscan/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBufferSize sets how many messages a client may lag behind before it is
// dropped.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given Origin values.
// With no origins every request is allowed.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		h.allowedOrigins = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			h.allowedOrigins[o] = struct{}{}
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
