// Package growth contains the vocabulary shared by the percentile engine and its adapters:
// sexes, metrics, age partitions and LMS reference rows.
package growth

import (
	"fmt"
	"strconv"
	"strings"
)

// Sex identifies the WHO reference population.
type Sex string

// Supported sexes.
const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Sexes returns every supported sex in a stable order.
func Sexes() []Sex { return []Sex{Female, Male} }

var sexAliases = map[string]Sex{
	"male":   Male,
	"m":      Male,
	"boy":    Male,
	"boys":   Male,
	"female": Female,
	"f":      Female,
	"girl":   Female,
	"girls":  Female,
}

// ParseSex accepts the spellings found in WHO file names and user input (M, F, boy, girls, ...).
func ParseSex(s string) (Sex, error) {
	if sex, ok := sexAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sex, nil
	}
	return "", fmt.Errorf("%w: unknown sex %q", ErrLookup, s)
}

// Valid reports whether s is one of the supported constants.
func (s Sex) Valid() bool { return s == Male || s == Female }

// Population returns the WHO file-name form ("boys" or "girls").
func (s Sex) Population() string {
	if s == Male {
		return "boys"
	}
	return "girls"
}

// Metric identifies an anthropometric indicator.
type Metric string

// Supported metrics.
const (
	Weight            Metric = "weight"
	Height            Metric = "height"
	HeadCircumference Metric = "head-circumference"
	BMI               Metric = "bmi"
)

// Metrics returns every supported metric in report order.
func Metrics() []Metric { return []Metric{Weight, Height, HeadCircumference, BMI} }

var metricAliases = map[string]Metric{
	"weight":             Weight,
	"wfa":                Weight,
	"height":             Height,
	"length":             Height,
	"lhfa":               Height,
	"head-circumference": HeadCircumference,
	"head_circumference": HeadCircumference,
	"hc":                 HeadCircumference,
	"hcfa":               HeadCircumference,
	"bmi":                BMI,
}

// ParseMetric accepts canonical names and WHO indicator codes (wfa, lhfa, hcfa, bmi).
func ParseMetric(s string) (Metric, error) {
	if m, ok := metricAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrLookup, s)
}

// Valid reports whether m is one of the supported constants.
func (m Metric) Valid() bool {
	switch m {
	case Weight, Height, HeadCircumference, BMI:
		return true
	}
	return false
}

// Code returns the WHO indicator code used in source file names.
func (m Metric) Code() string {
	switch m {
	case Weight:
		return "wfa"
	case Height:
		return "lhfa"
	case HeadCircumference:
		return "hcfa"
	case BMI:
		return "bmi"
	}
	return string(m)
}

// Unit returns the canonical unit of the metric's measurements.
func (m Metric) Unit() string {
	switch m {
	case Weight:
		return "kg"
	case BMI:
		return "kg/m²"
	}
	return "cm"
}

// AgeRange is an inclusive partition of the age domain in whole years.
type AgeRange struct {
	MinYears int
	MaxYears int
}

// ParseAgeRange parses the WHO "min_max" form, e.g. "0_2".
func ParseAgeRange(s string) (AgeRange, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "_")
	if !ok {
		return AgeRange{}, fmt.Errorf("age range %q: want min_max", s)
	}
	minYears, err := strconv.Atoi(lo)
	if err != nil {
		return AgeRange{}, fmt.Errorf("age range %q: %w", s, err)
	}
	maxYears, err := strconv.Atoi(hi)
	if err != nil {
		return AgeRange{}, fmt.Errorf("age range %q: %w", s, err)
	}
	r := AgeRange{MinYears: minYears, MaxYears: maxYears}
	if err := r.Validate(); err != nil {
		return AgeRange{}, err
	}
	return r, nil
}

// Validate checks 0 <= min <= max.
func (r AgeRange) Validate() error {
	if r.MinYears < 0 || r.MaxYears < r.MinYears {
		return fmt.Errorf("age range %s: want 0 <= min <= max", r)
	}
	return nil
}

// Contains reports whether years lies in [min, max].
func (r AgeRange) Contains(years int) bool {
	return years >= r.MinYears && years <= r.MaxYears
}

func (r AgeRange) String() string {
	return strconv.Itoa(r.MinYears) + "_" + strconv.Itoa(r.MaxYears)
}

// LMS holds the skewness (L), median (M) and coefficient of variation (S) at one age.
type LMS struct {
	L float64 `json:"l"`
	M float64 `json:"m"`
	S float64 `json:"s"`
}

// PercentileLevels are the curves published with every WHO row, in column order.
var PercentileLevels = [...]int{1, 5, 10, 25, 50, 75, 90, 95, 99}

// Curves holds the measurement at each of PercentileLevels.
type Curves [len(PercentileLevels)]float64

// Row is one tabulated age of a reference table.
type Row struct {
	Month  float64 `json:"month"`
	LMS    `json:"lms"`
	Curves Curves `json:"curves"`
}
