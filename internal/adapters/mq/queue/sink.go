package queue

import (
	"context"

	"github.com/okian/idscan/internal/domain/model"
	"github.com/okian/idscan/pkg/logger"
)

// Sink submits accepted records to a Queue and never blocks the caller.
// Records that do not fit are dropped with a warning.
type Sink struct {
	queue  Queue
	logger logger.Logger
}

// NewSink wraps q. A nil logger discards warnings.
func NewSink(q Queue, l logger.Logger) *Sink {
	if l == nil {
		l = logger.NewNop()
	}
	return &Sink{queue: q, logger: l}
}

// Submit enqueues rec, dropping it when the queue cannot take it. The record
// is already committed to the session, so the caller's cancellation does not
// stop the handoff.
func (s *Sink) Submit(ctx context.Context, rec model.ScanRecord) { //nolint:gocritic // records are values
	ctx = context.WithoutCancel(ctx)
	if s.queue.Enqueue(ctx, rec) {
		return
	}
	s.logger.Warn(ctx, "dropped accepted scan",
		logger.String("student_id", rec.StudentID),
		logger.String("uuid", rec.UUID),
		logger.Uint64("sequence_id", rec.SequenceID),
	)
}
