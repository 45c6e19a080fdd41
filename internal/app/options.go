package service

import (
	"time"

	"github.com/okian/idscan/internal/domain/branch"
	"github.com/okian/idscan/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the accepted-scan queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDatabasePath sets the SQLite file scans are persisted to.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.databasePath = path
		}
	}
}

// WithBranches sets the branch table.
func WithBranches(t branch.Table) Option {
	return func(s *Service) {
		if len(t) > 0 {
			s.branches = t
		}
	}
}

// WithFeedBufferSize sets the per-client live feed buffer.
func WithFeedBufferSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.feedBufferSize = n
		}
	}
}

// WithAllowedOrigins restricts live feed websocket origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Service) {
		s.allowedOrigins = origins
	}
}

// WithClock sets the time source for detections.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
