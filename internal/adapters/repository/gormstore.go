package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/idscan/internal/domain/model"
	"github.com/okian/idscan/pkg/logger"
	"github.com/okian/idscan/pkg/metrics"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// scanRow is the persisted form of a model.ScanRecord.
type scanRow struct {
	ID            uint      `gorm:"primaryKey"`
	UUID          string    `gorm:"column:uuid;size:36;uniqueIndex;not null"`
	SequenceID    uint64    `gorm:"not null"`
	StudentID     string    `gorm:"size:16;index;not null"`
	Format        string    `gorm:"size:32"`
	BranchCode    string    `gorm:"size:2;index"`
	StudentNumber string    `gorm:"size:5"`
	Year          string    `gorm:"size:4"`
	ShortYear     string    `gorm:"size:2"`
	ScannedAt     time.Time `gorm:"index;not null"`
	CreatedAt     time.Time
}

// TableName keeps the table name stable regardless of the struct name.
func (scanRow) TableName() string { return "scan_records" }

func toRow(rec model.ScanRecord) scanRow { //nolint:gocritic // records are values
	return scanRow{
		UUID:          rec.UUID,
		SequenceID:    rec.SequenceID,
		StudentID:     rec.StudentID,
		Format:        rec.Format,
		BranchCode:    rec.BranchCode,
		StudentNumber: rec.StudentNumber,
		Year:          rec.Year,
		ShortYear:     rec.ShortYear,
		ScannedAt:     rec.Timestamp.UTC(),
	}
}

func (r *scanRow) record() model.ScanRecord {
	return model.ScanRecord{
		SequenceID:    r.SequenceID,
		UUID:          r.UUID,
		StudentID:     r.StudentID,
		Format:        r.Format,
		BranchCode:    r.BranchCode,
		StudentNumber: r.StudentNumber,
		Year:          r.Year,
		ShortYear:     r.ShortYear,
		Timestamp:     r.ScannedAt.UTC(),
	}
}

// GormStore implements Store on SQLite through gorm.
type GormStore struct {
	db          *gorm.DB
	logger      logger.Logger
	sqlLogLevel gormlogger.LogLevel
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string, opts ...Option) (*GormStore, error) {
	s := &GormStore{
		logger:      logger.NewNop(),
		sqlLogLevel: gormlogger.Silent,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(s.sqlLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&scanRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: migrate: %w", ErrOpen, err)
	}
	s.db = db
	s.logger.Info(context.Background(), "scan database ready", logger.String("path", path))
	return s, nil
}

// Save persists rec, ignoring a record whose UUID is already stored.
func (s *GormStore) Save(ctx context.Context, rec model.ScanRecord) error { //nolint:gocritic // records are values
	start := time.Now()
	defer observe(start)

	row := toRow(rec)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "uuid"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return fmt.Errorf("save scan %s: %w", rec.UUID, res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.RecordRepositoryRecord()
	}
	return nil
}

// Forward lets the store act as the worker pool's downstream consumer.
func (s *GormStore) Forward(ctx context.Context, rec model.ScanRecord) error { //nolint:gocritic // records are values
	return s.Save(ctx, rec)
}

// List returns up to limit records, newest first.
func (s *GormStore) List(ctx context.Context, limit int) ([]model.ScanRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer observe(start)

	var rows []scanRow
	if err := s.db.WithContext(ctx).
		Order("scanned_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return records(rows), nil
}

// ByStudent returns every persisted scan of studentID, newest first.
func (s *GormStore) ByStudent(ctx context.Context, studentID string) ([]model.ScanRecord, error) {
	start := time.Now()
	defer observe(start)

	var rows []scanRow
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("scanned_at DESC").Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("scans of %s: %w", studentID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, studentID)
	}
	return records(rows), nil
}

// Count returns the number of persisted scans.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&scanRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close scan database: %w", err)
	}
	return nil
}

func records(rows []scanRow) []model.ScanRecord {
	out := make([]model.ScanRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].record())
	}
	return out
}

func observe(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
}

var _ Store = (*GormStore)(nil)
