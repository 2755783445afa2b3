// Package percentile computes age- and sex-adjusted growth percentiles.
//
// An Engine resolves the reference table for a measurement, interpolates the LMS parameters at the
// measurement age and evaluates the metric's z-score formula. It holds no mutable state and may be
// shared across goroutines.
package percentile

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/reference"
	"github.com/okian/growthchart/internal/domain/zscore"
	"github.com/okian/growthchart/pkg/logger"
	"github.com/okian/growthchart/pkg/metrics"
)

// Outcome labels recorded per computation.
const (
	outcomeOK       = "ok"
	outcomeNoResult = "no_result"
	outcomeError    = "error"
)

// Tables resolves the reference table covering an age.
type Tables interface {
	Resolve(ctx context.Context, sex growth.Sex, metric growth.Metric, ageMonths float64) (*reference.Table, error)
}

// Result is a computed percentile or a NoResult marker.
type Result struct {
	ZScore     float64
	Percentile float64
	LMS        growth.LMS
	// NoResult is set when the measurement is missing or invalid, the formula faulted, or
	// (in a batch) the row's table could not be resolved. Cause says which.
	NoResult bool
	Cause    error
}

// None returns a NoResult marker carrying cause.
func None(cause error) Result {
	return Result{ZScore: math.NaN(), Percentile: math.NaN(), NoResult: true, Cause: cause}
}

// Query is one row of a batch.
type Query struct {
	Sex       growth.Sex
	Metric    growth.Metric
	AgeMonths float64
	Value     float64
}

// Engine computes percentiles against an injected table source.
type Engine struct {
	tables  Tables
	logger  logger.Logger
	metrics bool
}

// New creates an Engine reading reference tables from tables.
func New(tables Tables, opts ...Option) *Engine {
	e := &Engine{
		tables:  tables,
		logger:  logger.Nop(),
		metrics: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PercentileFor computes the percentile of value for a child of sex at ageMonths.
//
// A missing, zero, negative or non-finite value yields a NoResult carrying growth.ErrValidation.
// Table resolution failures (growth.ErrLookup) and ages outside the table (growth.ErrDomain) are
// returned as errors. A faulted formula yields a NoResult carrying growth.ErrComputation.
func (e *Engine) PercentileFor(ctx context.Context, sex growth.Sex, metric growth.Metric, ageMonths, value float64) (Result, error) {
	if err := validate(value); err != nil {
		e.record(metric, outcomeNoResult)
		return None(err), nil
	}

	table, err := e.tables.Resolve(ctx, sex, metric, ageMonths)
	if err != nil {
		e.record(metric, outcomeError)
		if e.metrics {
			metrics.RecordLookupError(label(metric))
		}
		return Result{}, err
	}

	lms, err := reference.Interpolate(table, ageMonths)
	if err != nil {
		e.record(metric, outcomeError)
		if e.metrics {
			metrics.RecordDomainError(label(metric))
		}
		return Result{}, err
	}

	model, err := zscore.New(metric, lms, value)
	if err != nil {
		e.record(metric, outcomeError)
		return Result{}, err
	}

	z, err := model.ZScore()
	if err != nil {
		e.logger.Warn(ctx, "z-score computation faulted",
			logger.String("metric", string(metric)),
			logger.String("sex", string(sex)),
			logger.Float64("age_months", ageMonths),
			logger.Float64("L", lms.L),
			logger.Float64("M", lms.M),
			logger.Float64("S", lms.S),
			logger.Float64("y", value),
			logger.Error(err))
		e.record(metric, outcomeNoResult)
		if e.metrics {
			metrics.RecordComputationError(label(metric))
		}
		r := None(err)
		r.LMS = lms
		return r, nil
	}

	e.record(metric, outcomeOK)
	if e.metrics {
		metrics.ObserveZScore(label(metric), z)
	}
	return Result{ZScore: z, Percentile: zscore.Percentile(z), LMS: lms}, nil
}

// Batch computes every query in order. Rows whose table cannot be resolved, or whose age falls
// outside it, become NoResult with the cause attached. The call fails with growth.ErrNoTableResolved
// only when at least one row carried a measurement and none of those rows resolved a table; the
// per-row results are returned either way.
func (e *Engine) Batch(ctx context.Context, queries []Query) ([]Result, error) {
	if e.metrics {
		metrics.ObserveBatchRows(len(queries))
	}

	results := make([]Result, len(queries))
	var measured, resolved int
	var firstCause error

	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return results[:i], err
		}

		r, err := e.PercentileFor(ctx, q.Sex, q.Metric, q.AgeMonths, q.Value)
		if r.NoResult && errors.Is(r.Cause, growth.ErrValidation) {
			results[i] = r
			continue
		}
		measured++

		if err != nil {
			if firstCause == nil {
				firstCause = err
			}
			results[i] = None(err)
			continue
		}
		resolved++
		results[i] = r
	}

	if measured > 0 && resolved == 0 {
		return results, fmt.Errorf("%w: %d rows, first cause: %w", growth.ErrNoTableResolved, measured, firstCause)
	}
	return results, nil
}

func (e *Engine) record(metric growth.Metric, outcome string) {
	if e.metrics {
		metrics.RecordPercentile(label(metric), outcome)
	}
}

// unknownMetric labels every metric outside growth.Metrics so callers cannot mint series.
const unknownMetric = "unknown"

func label(metric growth.Metric) string {
	if !metric.Valid() {
		return unknownMetric
	}
	return string(metric)
}

func validate(value float64) error {
	switch {
	case math.IsNaN(value):
		return fmt.Errorf("%w: missing", growth.ErrValidation)
	case math.IsInf(value, 0):
		return fmt.Errorf("%w: non-finite value %g", growth.ErrValidation, value)
	case value < 0:
		return fmt.Errorf("%w: negative value %g", growth.ErrValidation, value)
	case value == 0:
		return fmt.Errorf("%w: zero value", growth.ErrValidation)
	}
	return nil
}
