// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/growthchart/internal/adapters/loader"
	"github.com/okian/growthchart/internal/adapters/repository"
	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/percentile"
	"github.com/okian/growthchart/pkg/logger"
)

// ErrNotStarted is returned by Reload before Start.
var ErrNotStarted = errors.New("service not started")

// Service owns the reference tables and the percentile engine computed against them.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  *repository.TableStore
	engine *percentile.Engine
	loader *loader.Loader

	// Configuration
	dataDir string
	strict  bool

	// State
	started  bool
	loadedAt time.Time
	loads    int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir sets the directory the reference tables are read from.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithStrictTables makes unrecognised files in the data directory a load error.
func WithStrictTables(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. No tables are held until Start.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir: "data",
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.store = repository.NewTableStore(repository.WithLogger(s.logger.Named("repository")))
	s.engine = percentile.New(s.store, percentile.WithLogger(s.logger.Named("percentile")))
	s.loader = loader.New(loader.WithLogger(s.logger.Named("loader")), loader.WithStrict(s.strict))
	return s
}

// Start loads the reference tables. It fails, leaving the service stopped, when the data
// directory holds no valid partition set.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting growth service...", logger.String("data_dir", s.dataDir))
	if err := s.load(ctx); err != nil {
		return err
	}
	s.started = true
	s.logger.Info(ctx, "growth service started", logger.Int("partitions", s.store.Count(ctx)))
	return nil
}

// Reload re-reads the data directory. On failure the previously loaded tables stay in service.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if err := s.load(ctx); err != nil {
		s.logger.Error(ctx, "reload failed; keeping previous tables", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "reference tables reloaded", logger.Int("partitions", s.store.Count(ctx)))
	return nil
}

func (s *Service) load(ctx context.Context) error {
	b, err := s.loader.LoadDir(ctx, s.dataDir)
	if err != nil {
		return fmt.Errorf("load tables from %s: %w", s.dataDir, err)
	}
	if err := s.store.Load(ctx, b); err != nil {
		return fmt.Errorf("build repository from %s: %w", s.dataDir, err)
	}
	s.loadedAt = time.Now()
	s.loads++
	return nil
}

// Stop marks the service stopped. Loaded tables remain readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "growth service stopped")
}

// PercentileFor computes one percentile. See percentile.Engine.PercentileFor.
func (s *Service) PercentileFor(ctx context.Context, sex growth.Sex, metric growth.Metric, ageMonths, value float64) (percentile.Result, error) {
	return s.engine.PercentileFor(ctx, sex, metric, ageMonths, value)
}

// Batch computes a batch of percentiles. See percentile.Engine.Batch.
func (s *Service) Batch(ctx context.Context, queries []percentile.Query) ([]percentile.Result, error) {
	return s.engine.Batch(ctx, queries)
}

// Tables lists the loaded partitions.
func (s *Service) Tables(ctx context.Context) []repository.Partition {
	return s.store.All(ctx)
}

// Curve returns the merged reference rows for sex and metric.
func (s *Service) Curve(ctx context.Context, sex growth.Sex, metric growth.Metric) ([]growth.Row, error) {
	return s.store.Curve(ctx, sex, metric)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":    s.started,
		"dataDir":    s.dataDir,
		"partitions": s.store.Count(ctx),
		"loads":      s.loads,
	}
	if !s.loadedAt.IsZero() {
		stats["loadedAt"] = s.loadedAt.UTC().Format(time.RFC3339)
	}

	coverage := make(map[string][]string)
	for _, p := range s.store.All(ctx) {
		key := string(p.Sex) + "/" + string(p.Metric)
		coverage[key] = append(coverage[key], p.Range.String())
	}
	stats["coverage"] = coverage
	return stats
}
