// Package intake turns raw decoder detections into a validated, deduplicated
// and bounded history of student ID scans.
//
// A Pipeline owns three pieces of state: the set of IDs currently in the
// history, the history itself, and the last accepted ID with its time.
// HandleDetection either commits a new record across all three or leaves
// them untouched.
package intake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/idscan/internal/domain/branch"
	"github.com/okian/idscan/internal/domain/dedupe"
	"github.com/okian/idscan/internal/domain/history"
	"github.com/okian/idscan/internal/domain/model"
	"github.com/okian/idscan/internal/domain/studentid"
	"github.com/okian/idscan/pkg/logger"
	"github.com/okian/idscan/pkg/metrics"
)

// DebounceWindow is how long a repeat of the last accepted ID is ignored.
const DebounceWindow = 3000 * time.Millisecond

// Sink receives accepted records for delivery outside the pipeline.
// Submit must not block; there is no acknowledgement.
type Sink interface {
	Submit(ctx context.Context, rec model.ScanRecord)
}

// Listener is notified of accepted, invalid and duplicate detections.
// Listeners run while the pipeline is locked and must not call back into it.
type Listener interface {
	OnSignal(ctx context.Context, sig model.Signal)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, sig model.Signal)

// OnSignal calls f.
func (f ListenerFunc) OnSignal(ctx context.Context, sig model.Signal) { f(ctx, sig) }

// Stats is a point-in-time summary of a pipeline.
type Stats struct {
	Accepted       uint64    `json:"accepted"`
	Invalid        uint64    `json:"invalid"`
	Duplicate      uint64    `json:"duplicate"`
	Debounced      uint64    `json:"debounced"`
	Evicted        uint64    `json:"evicted"`
	Buffered       int       `json:"buffered"`
	Capacity       int       `json:"capacity"`
	LastSequence   uint64    `json:"last_sequence"`
	LastAccepted   string    `json:"last_accepted,omitempty"`
	LastAcceptedAt time.Time `json:"last_accepted_at"`
}

// Pipeline is the scan intake state machine. It is safe for concurrent use;
// calls are serialized.
type Pipeline struct {
	mu sync.Mutex

	seen   dedupe.Deduper
	buffer *history.Buffer

	lastAccepted   string
	lastAcceptedAt time.Time
	seq            uint64

	accepted, invalid, duplicate, debounced, evicted uint64

	branches  branch.Table
	sink      Sink
	listeners []Listener
	newID     func() string
	gauge     func(size int)
	logger    logger.Logger
}

// New builds a pipeline with an empty history.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		seen:     dedupe.NewInMemoryDeduper(dedupe.WithCapacityHint(history.Capacity + 1)),
		buffer:   history.New(history.Capacity),
		branches: branch.Default(),
		newID:    uuid.NewString,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.reportBuffer()
	return p
}

// HandleDetection runs one detection through the pipeline and returns its
// outcome. It never fails: malformed and repeated input are reported through
// the returned signal and to listeners. Debounced detections notify nobody.
func (p *Pipeline) HandleDetection(ctx context.Context, raw model.RawDetection, now time.Time) model.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := studentid.Parse(raw.Code)
	if err != nil {
		p.invalid++
		metrics.RecordScanInvalid()
		sig := model.Signal{Kind: model.SignalInvalidFormat, Candidate: studentid.Normalize(raw.Code)}
		p.logger.Debug(ctx, "invalid student id", logger.String("candidate", sig.Candidate), logger.String("format", raw.Format))
		p.notify(ctx, sig)
		return sig
	}
	candidate := id.String()

	// Elapsed time below zero counts as inside the window.
	if candidate == p.lastAccepted && now.Sub(p.lastAcceptedAt) < DebounceWindow {
		p.debounced++
		metrics.RecordScanDebounced()
		return model.Signal{Kind: model.SignalDebounced, Candidate: candidate}
	}

	if p.seen.Contains(ctx, candidate) {
		p.duplicate++
		metrics.RecordScanDuplicate()
		sig := model.Signal{Kind: model.SignalDuplicate, Candidate: candidate}
		p.logger.Info(ctx, "duplicate scan", logger.String("student_id", candidate))
		p.notify(ctx, sig)
		return sig
	}

	p.seen.SeenAndRecord(ctx, candidate)
	p.lastAccepted = candidate
	p.lastAcceptedAt = now
	p.seq++

	rec := model.ScanRecord{
		SequenceID:    p.seq,
		UUID:          p.newID(),
		StudentID:     candidate,
		Format:        raw.Format,
		BranchCode:    id.Branch(),
		StudentNumber: id.Number(),
		Year:          id.Year(),
		ShortYear:     id.ShortYear(),
		Timestamp:     now,
	}

	if oldest, evicted := p.buffer.Push(rec); evicted {
		p.seen.Unrecord(ctx, oldest.StudentID)
		p.evicted++
		metrics.RecordScanEvicted()
		p.logger.Debug(ctx, "evicted scan", logger.String("student_id", oldest.StudentID), logger.Uint64("sequence_id", oldest.SequenceID))
	}

	p.accepted++
	metrics.RecordScanAccepted(rec.BranchCode)
	p.reportBuffer()
	p.logger.Info(ctx, "scan accepted",
		logger.String("student_id", candidate),
		logger.String("branch", p.branches.Lookup(rec.BranchCode).Name),
		logger.Uint64("sequence_id", rec.SequenceID),
	)

	recCopy := rec
	sig := model.Signal{Kind: model.SignalAccepted, Candidate: candidate, Record: &recCopy}
	p.notify(ctx, sig)
	if p.sink != nil {
		p.sink.Submit(ctx, rec)
	}
	return sig
}

// reportBuffer publishes the history length to the buffer gauge, if any.
func (p *Pipeline) reportBuffer() {
	if p.gauge != nil {
		p.gauge(p.buffer.Len())
	}
}

func (p *Pipeline) notify(ctx context.Context, sig model.Signal) {
	for _, l := range p.listeners {
		l.OnSignal(ctx, sig)
	}
}

// Recent returns the history, newest first.
func (p *Pipeline) Recent() []model.ScanRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.Snapshot()
}

// Branch returns presentation metadata for a branch code.
func (p *Pipeline) Branch(code string) branch.Info {
	return p.branches.Lookup(code)
}

// Branches returns the branch table sorted by code.
func (p *Pipeline) Branches() []branch.Info {
	return p.branches.List()
}

// Stats returns counters and the current history size.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Accepted:       p.accepted,
		Invalid:        p.invalid,
		Duplicate:      p.duplicate,
		Debounced:      p.debounced,
		Evicted:        p.evicted,
		Buffered:       p.buffer.Len(),
		Capacity:       p.buffer.Cap(),
		LastSequence:   p.seq,
		LastAccepted:   p.lastAccepted,
		LastAcceptedAt: p.lastAcceptedAt,
	}
}

// Reset starts a new session: history, seen IDs, debounce state and counters
// are cleared. Sequence IDs keep increasing.
func (p *Pipeline) Reset(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seen.Reset(ctx)
	p.buffer.Reset()
	p.lastAccepted = ""
	p.lastAcceptedAt = time.Time{}
	p.accepted, p.invalid, p.duplicate, p.debounced, p.evicted = 0, 0, 0, 0, 0
	p.reportBuffer()
	p.logger.Info(ctx, "session reset", logger.Uint64("last_sequence", p.seq))
}
