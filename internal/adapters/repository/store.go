// Package repository persists accepted scan records.
package repository

import (
	"context"

	"github.com/okian/idscan/internal/domain/model"
)

// Store provides read/write access to persisted scans.
type Store interface {
	// Save persists rec. Saving the same UUID twice is a no-op.
	Save(ctx context.Context, rec model.ScanRecord) error

	// List returns up to limit records, newest first.
	// Returns ErrInvalidLimit if limit is not positive.
	List(ctx context.Context, limit int) ([]model.ScanRecord, error)

	// ByStudent returns every persisted scan of one student, newest first.
	// Returns ErrNotFound if the student was never scanned.
	ByStudent(ctx context.Context, studentID string) ([]model.ScanRecord, error)

	// Count returns the number of persisted scans.
	Count(ctx context.Context) (int64, error)

	Close() error
}
