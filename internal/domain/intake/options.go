package intake

import (
	"github.com/okian/idscan/internal/domain/branch"
	"github.com/okian/idscan/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithBranches sets the branch table used for presentation lookups.
func WithBranches(t branch.Table) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.branches = t
		}
	}
}

// WithSink sets the downstream consumer of accepted records.
func WithSink(s Sink) Option {
	return func(p *Pipeline) {
		p.sink = s
	}
}

// WithListener adds a signal listener. It may be given more than once.
func WithListener(l Listener) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.listeners = append(p.listeners, l)
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithIDGenerator replaces the record UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		if gen != nil {
			p.newID = gen
		}
	}
}

// WithBufferGauge reports the history length to gauge after every change.
// Without it the pipeline publishes nothing.
func WithBufferGauge(gauge func(size int)) Option {
	return func(p *Pipeline) {
		p.gauge = gauge
	}
}
