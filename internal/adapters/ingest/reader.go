// Package ingest reads measurement exports, computes their percentiles and writes the results.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/growthchart/internal/domain/units"
)

// ErrMalformedInput reports a measurement file that cannot be read.
var ErrMalformedInput = errors.New("malformed measurement file")

// Format is a measurement export layout.
type Format string

// Supported layouts.
const (
	FormatStandard    Format = "standard"
	FormatHuckleberry Format = "huckleberry"
)

// Measurement is one dated set of readings. Missing readings are NaN.
type Measurement struct {
	Date     time.Time
	WeightKg float64
	HeightCm float64
	HeadCm   float64
}

// Standard layout columns.
const (
	colDate   = "date"
	colWeight = "weight_kg"
	colHeight = "height_cm"
	colHead   = "hc_cm"
)

// Huckleberry export columns.
const (
	hbType        = "Type"
	hbStart       = "Start"
	hbWeight      = "Start Condition"
	hbHeight      = "Start Location"
	hbHead        = "End Condition"
	hbGrowthEntry = "Growth"
)

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02 15:04",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"01/02/2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Read reads measurements in format.
func Read(r io.Reader, format Format) ([]Measurement, error) {
	switch format {
	case FormatStandard:
		return ReadStandard(r)
	case FormatHuckleberry:
		return ReadHuckleberry(r)
	}
	return nil, fmt.Errorf("%w: unknown format %q", ErrMalformedInput, format)
}

// ReadStandard reads the "date, weight_kg, height_cm, hc_cm" layout. Any reading column may be
// absent and any reading cell may be empty.
func ReadStandard(r io.Reader) ([]Measurement, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if _, ok := header[colDate]; !ok {
		return nil, fmt.Errorf("%w: no %s column", ErrMalformedInput, colDate)
	}

	out := make([]Measurement, 0, len(records))
	for n, rec := range records {
		line := n + 2
		date, err := parseDate(field(rec, header, colDate))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedInput, line, err)
		}
		m := Measurement{Date: date}
		for _, c := range []struct {
			col string
			dst *float64
		}{{colWeight, &m.WeightKg}, {colHeight, &m.HeightCm}, {colHead, &m.HeadCm}} {
			if *c.dst, err = number(field(rec, header, c.col)); err != nil {
				return nil, fmt.Errorf("%w: line %d %s: %w", ErrMalformedInput, line, c.col, err)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// ReadHuckleberry reads the growth entries of a Huckleberry export. Readings carry unit suffixes
// ("7.5kg", "60cm") and are converted to kilograms and centimetres.
func ReadHuckleberry(r io.Reader) ([]Measurement, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{hbType, hbStart} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: no %q column", ErrMalformedInput, col)
		}
	}

	var out []Measurement
	for n, rec := range records {
		if field(rec, header, hbType) != hbGrowthEntry {
			continue
		}
		line := n + 2
		date, err := parseDate(field(rec, header, hbStart))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedInput, line, err)
		}
		m := Measurement{Date: date, WeightKg: units.CleanupWeight(field(rec, header, hbWeight))}
		if m.HeightCm, err = units.CleanupLength(field(rec, header, hbHeight)); err != nil {
			return nil, fmt.Errorf("%w: line %d height: %w", ErrMalformedInput, line, err)
		}
		if m.HeadCm, err = units.CleanupLength(field(rec, header, hbHead)); err != nil {
			return nil, fmt.Errorf("%w: line %d head circumference: %w", ErrMalformedInput, line, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func readAll(r io.Reader) (map[string]int, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	header := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		header[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return header, records[1:], nil
}

func field(rec []string, header map[string]int, col string) string {
	i, ok := header[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func number(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
