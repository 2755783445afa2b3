package api

import "github.com/okian/growthchart/pkg/logger"

// Defaults applied by NewServer.
const (
	DefaultMaxBatchSize = 1000
	maxBodyBytes        = 1 << 20
)

// Option configures a Server.
type Option func(*Server)

// WithMaxBatchSize caps the number of measurements accepted by POST /percentiles.
// Non-positive values keep the default.
func WithMaxBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
