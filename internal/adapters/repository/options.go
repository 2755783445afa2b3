package repository

import "github.com/okian/growthchart/pkg/logger"

// Option applies a configuration option to the TableStore.
type Option func(*TableStore)

// WithLogger sets the logger used when partitions are replaced.
func WithLogger(l logger.Logger) Option {
	return func(s *TableStore) {
		if l != nil {
			s.logger = l
		}
	}
}
