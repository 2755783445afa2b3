package ingest

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/percentile"
	"github.com/okian/growthchart/internal/domain/units"
	"github.com/okian/growthchart/pkg/logger"
	"github.com/okian/growthchart/pkg/metrics"
)

// Calculator computes percentiles for a batch of rows.
type Calculator interface {
	Batch(ctx context.Context, queries []percentile.Query) ([]percentile.Result, error)
}

// Record is a measurement with its age, BMI and percentiles. Measures are rounded to two decimals
// and percentiles to one; a percentile that could not be computed is 0.
type Record struct {
	Measurement
	Months      float64
	BMI         float64
	Percentiles map[growth.Metric]float64
}

// Value returns the record's reading for metric.
func (r Record) Value(metric growth.Metric) float64 {
	switch metric {
	case growth.Weight:
		return r.WeightKg
	case growth.Height:
		return r.HeightCm
	case growth.HeadCircumference:
		return r.HeadCm
	case growth.BMI:
		return r.BMI
	}
	return math.NaN()
}

// Run is one processed export.
type Run struct {
	ID      string
	Child   growth.Child
	Format  Format
	Records []Record
}

// Processor turns measurements into records.
type Processor struct {
	calc   Calculator
	logger logger.Logger
}

// ProcessorOption applies a configuration option to the Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the processor logger.
func WithLogger(l logger.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessor creates a Processor computing through calc.
func NewProcessor(calc Calculator, opts ...ProcessorOption) *Processor {
	p := &Processor{calc: calc, logger: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process computes every metric of every measurement for child. Each row is resolved against the
// reference partition covering the child's age on the measurement date.
func (p *Processor) Process(ctx context.Context, child growth.Child, format Format, ms []Measurement) (Run, error) {
	run := Run{ID: uuid.New().String(), Child: child, Format: format, Records: make([]Record, len(ms))}
	metrics.RecordRowsIngested(string(format), len(ms))

	metricList := growth.Metrics()
	queries := make([]percentile.Query, 0, len(ms)*len(metricList))
	for i, m := range ms {
		rec := Record{
			Measurement: Measurement{
				Date:     m.Date,
				WeightKg: round(m.WeightKg, 2),
				HeightCm: round(m.HeightCm, 2),
				HeadCm:   round(m.HeadCm, 2),
			},
			Months:      child.MeasurementMonths(m.Date),
			Percentiles: make(map[growth.Metric]float64, len(metricList)),
		}
		bmi := units.BMI(m.WeightKg, m.HeightCm)
		rec.BMI = round(bmi, 2)
		run.Records[i] = rec

		for _, metric := range metricList {
			value := m.valueFor(metric, bmi)
			queries = append(queries, percentile.Query{Sex: child.Sex, Metric: metric, AgeMonths: rec.Months, Value: value})
		}
	}

	results, err := p.calc.Batch(ctx, queries)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}

	var missing int
	for q, r := range results {
		rec := run.Records[q/len(metricList)]
		metric := queries[q].Metric
		if r.NoResult {
			rec.Percentiles[metric] = 0
			if !math.IsNaN(queries[q].Value) {
				missing++
				p.logger.Debug(ctx, "no percentile for measurement",
					logger.String("run_id", run.ID),
					logger.String("metric", string(metric)),
					logger.Float64("months", queries[q].AgeMonths),
					logger.Error(r.Cause))
			}
			continue
		}
		rec.Percentiles[metric] = round(r.Percentile, 1)
	}

	p.logger.Info(ctx, "measurements processed",
		logger.String("run_id", run.ID),
		logger.String("child", child.Name),
		logger.String("format", string(format)),
		logger.Int("rows", len(ms)),
		logger.Int("unresolved", missing))
	return run, nil
}

func (m Measurement) valueFor(metric growth.Metric, bmi float64) float64 {
	switch metric {
	case growth.Weight:
		return m.WeightKg
	case growth.Height:
		return m.HeightCm
	case growth.HeadCircumference:
		return m.HeadCm
	}
	return bmi
}

// round rounds half away from zero; NaN stays NaN.
func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
