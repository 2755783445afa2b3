package repository

import (
	"fmt"
	"sort"

	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/reference"
)

// Builder collects partitions and validates them into an immutable catalog.
type Builder struct {
	parts map[Key]Partition
	errs  []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{parts: make(map[Key]Partition)}
}

// Add registers table for sex, metric and age range. Errors are reported by Build.
func (b *Builder) Add(sex growth.Sex, metric growth.Metric, ages growth.AgeRange, table *reference.Table, source string) *Builder {
	key := Key{Sex: sex, Metric: metric, Range: ages}
	switch {
	case !sex.Valid():
		b.errs = append(b.errs, fmt.Errorf("%w: unknown sex %q", ErrInvalidPartition, sex))
	case !metric.Valid():
		b.errs = append(b.errs, fmt.Errorf("%w: unknown metric %q", ErrInvalidPartition, metric))
	case table == nil:
		b.errs = append(b.errs, fmt.Errorf("%w: %s/%s/%s: nil table", ErrInvalidPartition, sex, metric, ages))
	default:
		if err := ages.Validate(); err != nil {
			b.errs = append(b.errs, fmt.Errorf("%w: %s/%s: %w", ErrInvalidPartition, sex, metric, err))
			return b
		}
		if _, dup := b.parts[key]; dup {
			b.errs = append(b.errs, fmt.Errorf("%w: %s/%s/%s", ErrDuplicatePartition, sex, metric, ages))
			return b
		}
		b.parts[key] = Partition{Key: key, Table: table, Source: source}
	}
	return b
}

// Len returns the number of partitions accepted so far.
func (b *Builder) Len() int { return len(b.parts) }

type seriesKey struct {
	sex    growth.Sex
	metric growth.Metric
}

// catalog is the validated, read-only partition index.
type catalog struct {
	series map[seriesKey][]Partition
	count  int
}

// build validates the partitions. Per sex and metric, consecutive ranges must meet at exactly
// one shared boundary year: an overlap of more than one year or a gap is rejected.
func (b *Builder) build() (*catalog, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	c := &catalog{series: make(map[seriesKey][]Partition), count: len(b.parts)}
	for key, p := range b.parts {
		sk := seriesKey{sex: key.Sex, metric: key.Metric}
		c.series[sk] = append(c.series[sk], p)
	}

	for sk, parts := range c.series {
		sort.Slice(parts, func(i, j int) bool { return parts[i].Range.MinYears < parts[j].Range.MinYears })
		for i := 1; i < len(parts); i++ {
			prev, cur := parts[i-1].Range, parts[i].Range
			switch {
			case cur.MinYears < prev.MaxYears, cur.MinYears == prev.MinYears:
				return nil, fmt.Errorf("%w: %s/%s: %s overlaps %s", ErrInvalidPartition, sk.sex, sk.metric, cur, prev)
			case cur.MinYears > prev.MaxYears:
				return nil, fmt.Errorf("%w: %s/%s: gap between %s and %s", ErrInvalidPartition, sk.sex, sk.metric, prev, cur)
			}
		}
	}
	return c, nil
}

// resolve picks the partition covering whole-year age years. At a boundary shared by two
// partitions the one starting at that year wins; the last partition also covers its end year.
func (c *catalog) resolve(sex growth.Sex, metric growth.Metric, years int) (Partition, bool) {
	parts := c.series[seriesKey{sex: sex, metric: metric}]
	i := sort.Search(len(parts), func(i int) bool { return parts[i].Range.MinYears > years })
	if i == 0 {
		return Partition{}, false
	}
	p := parts[i-1]
	if !p.Range.Contains(years) {
		return Partition{}, false
	}
	return p, true
}
