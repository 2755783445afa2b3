// Package repository holds the WHO reference partitions and resolves the table covering an age.
package repository

import (
	"context"

	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/reference"
)

// Key identifies one reference partition.
type Key struct {
	Sex    growth.Sex
	Metric growth.Metric
	Range  growth.AgeRange
}

// Partition is a reference table together with the whole-year range it covers.
type Partition struct {
	Key
	Table *reference.Table
	// Source names where the table was read from, for listings.
	Source string
}

// Store provides read access to the reference partitions.
type Store interface {
	// Resolve returns the table covering ageMonths for sex and metric.
	// Returns growth.ErrLookup if sex or metric is unknown or no partition covers the age.
	Resolve(ctx context.Context, sex growth.Sex, metric growth.Metric, ageMonths float64) (*reference.Table, error)

	// Partitions lists the partitions for sex and metric in ascending age order.
	Partitions(ctx context.Context, sex growth.Sex, metric growth.Metric) []Partition

	// Curve returns the rows of every partition for sex and metric merged in age order.
	Curve(ctx context.Context, sex growth.Sex, metric growth.Metric) ([]growth.Row, error)

	// Count returns the number of partitions held.
	Count(ctx context.Context) int
}
