// Package service wires the scan intake pipeline to its adapters and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/okian/idscan/internal/adapters/decoder"
	"github.com/okian/idscan/internal/adapters/http/api"
	"github.com/okian/idscan/internal/adapters/http/feed"
	eventqueue "github.com/okian/idscan/internal/adapters/mq/queue"
	workerpool "github.com/okian/idscan/internal/adapters/mq/worker"
	"github.com/okian/idscan/internal/adapters/repository"
	"github.com/okian/idscan/internal/domain/branch"
	"github.com/okian/idscan/internal/domain/intake"
	"github.com/okian/idscan/internal/domain/model"
	"github.com/okian/idscan/pkg/logger"
	"github.com/okian/idscan/pkg/metrics"
)

// Service owns the pipeline and everything downstream of it.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *repository.GormStore
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	hub      *feed.Hub
	pipeline *intake.Pipeline
	detector *decoder.Adapter

	// Configuration
	workerCount    int
	queueSize      int
	databasePath   string
	branches       branch.Table
	feedBufferSize int
	allowedOrigins []string
	clock          func() time.Time

	// State
	started       bool
	cancelWorkers context.CancelFunc

	logger logger.Logger
}

// New constructs a Service with default configuration. Components are built
// by Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      1024,
		databasePath:   ":memory:",
		branches:       branch.Default(),
		feedBufferSize: 32,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the repository and starts the workers. Calling it again is a
// no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scan service...")

	store, err := repository.Open(s.databasePath, repository.WithLogger(s.logger.Named("repository")))
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	s.store = store

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, workerpool.WithLogger(s.logger))
	// Workers outlive ctx: only Stop closing the queue ends them, so scans
	// accepted during shutdown still reach the repository.
	workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelWorkers = cancel
	s.pool.Start(workCtx)

	s.hub = feed.NewHub(
		feed.WithBufferSize(s.feedBufferSize),
		feed.WithAllowedOrigins(s.allowedOrigins...),
		feed.WithLogger(s.logger.Named("feed")),
	)
	s.pipeline = intake.New(
		intake.WithBranches(s.branches),
		intake.WithSink(eventqueue.NewSink(s.queue, s.logger.Named("sink"))),
		intake.WithListener(s.hub),
		intake.WithLogger(s.logger.Named("intake")),
		intake.WithBufferGauge(metrics.UpdateBufferSize),
	)
	s.detector = decoder.New(s.pipeline,
		decoder.WithClock(s.clock),
		decoder.WithLogger(s.logger.Named("decoder")),
	)

	s.started = true
	s.logger.Info(ctx, "scan service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.String("database", s.databasePath),
		logger.Int("branches", len(s.branches)),
	)
	return nil
}

// Stop drains accepted scans into the repository, then releases resources.
// Stop order: queue, workers, repository, feed.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping scan service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	// Abandon workers that missed the drain deadline.
	s.cancelWorkers()
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	s.hub.Close()

	s.started = false
	s.logger.Info(ctx, "scan service stopped", logger.Uint64("forwarded", s.pool.Forwarded()))
	return errors.Join(errs...)
}

// Feed returns the live feed handler. It is nil before Start.
func (s *Service) Feed() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hub == nil {
		return nil
	}
	return s.hub
}

// OnDetected passes a decoder callback to the pipeline.
func (s *Service) OnDetected(ctx context.Context, r decoder.Result) model.Signal {
	return s.detector.OnDetected(ctx, r)
}

// ReportError records a camera failure and returns its user text.
func (s *Service) ReportError(ctx context.Context, name, message string) string {
	return s.detector.ReportError(ctx, name, message)
}

// Recent returns the in-memory history, newest first.
func (s *Service) Recent() []model.ScanRecord { return s.pipeline.Recent() }

// Branch looks up presentation data for a branch code.
func (s *Service) Branch(code string) branch.Info { return s.pipeline.Branch(code) }

// Branches lists the branch table.
func (s *Service) Branches() []branch.Info { return s.pipeline.Branches() }

// Reset starts a new scanning session. Persisted scans are kept.
func (s *Service) Reset(ctx context.Context) { s.pipeline.Reset(ctx) }

// List returns persisted scans, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]model.ScanRecord, error) {
	return s.store.List(ctx, limit)
}

// ByStudent returns persisted scans of one student.
func (s *Service) ByStudent(ctx context.Context, studentID string) ([]model.ScanRecord, error) {
	return s.store.ByStudent(ctx, studentID)
}

// Pipeline exposes the intake pipeline. It is nil before Start.
func (s *Service) Pipeline() *intake.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["forwarded"] = s.pool.Forwarded()
	stats["feedClients"] = s.hub.Clients()
	stats["pipeline"] = s.pipeline.Stats()

	if n, err := s.store.Count(ctx); err != nil {
		s.logger.Warn(ctx, "count persisted scans", logger.Error(err))
	} else {
		stats["persisted"] = n
	}

	metrics.UpdateQueueSize(queueLen)
	return stats
}

var (
	_ api.Dependencies  = (*Service)(nil)
	_ api.StatsProvider = (*Service)(nil)
)
