// Package history keeps the newest accepted scans in a bounded buffer.
package history

import "github.com/okian/idscan/internal/domain/model"

// Capacity is the number of records a Buffer retains.
const Capacity = 10

// Buffer is a newest-first sequence of scan records holding at most
// its capacity. It is not safe for concurrent use; the owning pipeline
// serializes access.
type Buffer struct {
	records  []model.ScanRecord
	capacity int
}

// New returns an empty buffer with the given capacity. Non-positive values
// fall back to Capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = Capacity
	}
	return &Buffer{
		records:  make([]model.ScanRecord, 0, capacity+1),
		capacity: capacity,
	}
}

// Push inserts rec at the front. When the buffer overflows, the oldest record
// is removed and returned with evicted=true.
func (b *Buffer) Push(rec model.ScanRecord) (oldest model.ScanRecord, evicted bool) { //nolint:gocritic // records are values
	b.records = append(b.records, model.ScanRecord{})
	copy(b.records[1:], b.records)
	b.records[0] = rec

	if len(b.records) <= b.capacity {
		return model.ScanRecord{}, false
	}
	last := len(b.records) - 1
	oldest = b.records[last]
	b.records[last] = model.ScanRecord{}
	b.records = b.records[:last]
	return oldest, true
}

// Snapshot returns a copy of the records, newest first.
func (b *Buffer) Snapshot() []model.ScanRecord {
	out := make([]model.ScanRecord, len(b.records))
	copy(out, b.records)
	return out
}

// Len returns the number of records held.
func (b *Buffer) Len() int { return len(b.records) }

// Cap returns the configured capacity.
func (b *Buffer) Cap() int { return b.capacity }

// Reset drops every record.
func (b *Buffer) Reset() {
	clear(b.records)
	b.records = b.records[:0]
}
