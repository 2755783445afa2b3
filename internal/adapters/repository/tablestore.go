package repository

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/reference"
	"github.com/okian/growthchart/pkg/logger"
	"github.com/okian/growthchart/pkg/metrics"
)

const monthsPerYear = 12

// TableStore is an in-memory Store. Reads go through an atomically published catalog,
// so Load can swap in a new set of partitions while requests are being served.
type TableStore struct {
	catalog atomic.Pointer[catalog]
	logger  logger.Logger
}

var _ Store = (*TableStore)(nil)

// NewTableStore creates an empty store.
func NewTableStore(opts ...Option) *TableStore {
	s := &TableStore{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.catalog.Store(&catalog{series: map[seriesKey][]Partition{}})
	return s
}

// Build validates b and returns a store serving its partitions.
func Build(b *Builder, opts ...Option) (*TableStore, error) {
	s := NewTableStore(opts...)
	if err := s.Load(context.Background(), b); err != nil {
		return nil, err
	}
	return s, nil
}

// Load validates b and replaces the served partitions. On error the previous
// partitions stay in place.
func (s *TableStore) Load(ctx context.Context, b *Builder) error {
	c, err := b.build()
	if err != nil {
		return err
	}
	s.catalog.Store(c)

	metrics.UpdateTablesLoaded(c.count)
	for sk, parts := range c.series {
		rows := 0
		for _, p := range parts {
			rows += p.Table.Len()
		}
		metrics.UpdateTableRows(string(sk.sex), string(sk.metric), rows)
	}
	s.logger.Info(ctx, "reference partitions loaded", logger.Int("partitions", c.count), logger.Int("series", len(c.series)))
	return nil
}

// Resolve implements Store.Resolve. The age is compared in whole years, floor(ageMonths/12).
func (s *TableStore) Resolve(_ context.Context, sex growth.Sex, metric growth.Metric, ageMonths float64) (*reference.Table, error) {
	if !sex.Valid() {
		return nil, fmt.Errorf("%w: unknown sex %q", growth.ErrLookup, sex)
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: unknown metric %q", growth.ErrLookup, metric)
	}
	if math.IsNaN(ageMonths) || math.IsInf(ageMonths, 0) || ageMonths < 0 {
		return nil, fmt.Errorf("%w: invalid age %g months", growth.ErrLookup, ageMonths)
	}

	years := int(math.Floor(ageMonths / monthsPerYear))
	p, ok := s.catalog.Load().resolve(sex, metric, years)
	if !ok {
		return nil, fmt.Errorf("%w: no %s/%s partition covers %g months", growth.ErrLookup, sex, metric, ageMonths)
	}
	return p.Table, nil
}

// Partitions implements Store.Partitions.
func (s *TableStore) Partitions(_ context.Context, sex growth.Sex, metric growth.Metric) []Partition {
	parts := s.catalog.Load().series[seriesKey{sex: sex, metric: metric}]
	out := make([]Partition, len(parts))
	copy(out, parts)
	return out
}

// All returns every partition ordered by sex, metric and age.
func (s *TableStore) All(ctx context.Context) []Partition {
	var out []Partition
	for _, sex := range growth.Sexes() {
		for _, metric := range growth.Metrics() {
			out = append(out, s.Partitions(ctx, sex, metric)...)
		}
	}
	return out
}

// Curve implements Store.Curve. Where two partitions tabulate the same month the row of the
// lower partition is kept.
func (s *TableStore) Curve(ctx context.Context, sex growth.Sex, metric growth.Metric) ([]growth.Row, error) {
	parts := s.Partitions(ctx, sex, metric)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no %s/%s partitions", growth.ErrLookup, sex, metric)
	}

	var rows []growth.Row
	for _, p := range parts {
		for _, r := range p.Table.Rows() {
			if n := len(rows); n > 0 && r.Month <= rows[n-1].Month {
				continue
			}
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// Count implements Store.Count.
func (s *TableStore) Count(_ context.Context) int {
	return s.catalog.Load().count
}
