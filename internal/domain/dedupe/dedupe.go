// Package dedupe tracks which student IDs are already in the recent history.
package dedupe

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Deduper records seen IDs. Membership defines "duplicate".
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Contains reports whether id is recorded without recording it.
	Contains(ctx context.Context, id string) bool

	// Unrecord removes id, making it scannable again.
	Unrecord(ctx context.Context, id string)

	// Reset forgets every recorded id.
	Reset(ctx context.Context)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map guarded by a RWMutex.
// It never evicts on its own: callers unrecord ids when they leave the history.
type inMemoryDeduper struct {
	mu           sync.RWMutex
	seen         map[string]struct{}
	size         atomic.Int64
	capacityHint int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.capacityHint)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Contains(_ context.Context, id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.seen[id]
	return exists
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Reset(_ context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen = make(map[string]struct{}, d.capacityHint)
	d.size.Store(0)
}

// Size returns the current number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// IDs returns the recorded ids in sorted order. It accepts any Deduper built
// by this package and returns nil for other implementations.
func IDs(d Deduper) []string {
	m, ok := d.(*inMemoryDeduper)
	if !ok {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.seen))
	for id := range m.seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
