package decoder

import (
	"time"

	"github.com/okian/idscan/pkg/logger"
)

// Option applies a configuration option to the Adapter.
type Option func(*Adapter)

// WithClock sets the time source passed to the pipeline.
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the adapter.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}
