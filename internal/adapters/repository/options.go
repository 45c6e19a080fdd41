package repository

import (
	"github.com/okian/idscan/pkg/logger"
	gormlogger "gorm.io/gorm/logger"
)

// Option applies a configuration option to the GormStore.
type Option func(*GormStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *GormStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSQLLogLevel sets gorm's own SQL log level. Silent by default.
func WithSQLLogLevel(level gormlogger.LogLevel) Option {
	return func(s *GormStore) {
		s.sqlLogLevel = level
	}
}
