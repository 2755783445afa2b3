package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/reference"
)

// ageHeaders name the age column across WHO table variants.
var ageHeaders = []string{"month", "age", "months"}

// columns maps the header positions of one sheet.
type columns struct {
	age, l, m, s int
	curves       [len(growth.PercentileLevels)]int
}

func mapColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	c := columns{age: -1}
	for _, h := range ageHeaders {
		if i, ok := index[h]; ok {
			c.age = i
			break
		}
	}
	if c.age < 0 {
		return columns{}, fmt.Errorf("%w: no Month column in header %v", ErrMalformedTable, header)
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"l", &c.l}, {"m", &c.m}, {"s", &c.s}} {
		i, ok := index[p.name]
		if !ok {
			return columns{}, fmt.Errorf("%w: missing %s column", ErrMalformedTable, strings.ToUpper(p.name))
		}
		*p.dst = i
	}

	// Percentile columns are optional; z-score tables publish none.
	for k, level := range growth.PercentileLevels {
		c.curves[k] = -1
		if i, ok := index["p"+strconv.Itoa(level)]; ok {
			c.curves[k] = i
		}
	}
	return c, nil
}

// parseRecords turns a header plus data records into a validated table. Blank records are skipped;
// absent percentile cells become NaN.
func parseRecords(records [][]string) (*reference.Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrMalformedTable)
	}
	cols, err := mapColumns(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]growth.Row, 0, len(records)-1)
	for n, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		line := n + 2

		var r growth.Row
		if r.Month, err = cell(rec, cols.age, line); err != nil {
			return nil, err
		}
		if r.L, err = cell(rec, cols.l, line); err != nil {
			return nil, err
		}
		if r.M, err = cell(rec, cols.m, line); err != nil {
			return nil, err
		}
		if r.S, err = cell(rec, cols.s, line); err != nil {
			return nil, err
		}
		for k, i := range cols.curves {
			r.Curves[k] = math.NaN()
			if i < 0 || i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
				continue
			}
			if r.Curves[k], err = cell(rec, i, line); err != nil {
				return nil, err
			}
		}
		rows = append(rows, r)
	}
	return reference.NewTable(rows)
}

func cell(rec []string, i, line int) (float64, error) {
	if i >= len(rec) {
		return 0, fmt.Errorf("%w: row %d: missing column %d", ErrMalformedTable, line, i+1)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d column %d: %w", ErrMalformedTable, line, i+1, err)
	}
	return v, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadCSV reads a reference table from CSV.
func ReadCSV(r io.Reader) (*reference.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	return parseRecords(records)
}

// ReadXLSX reads a reference table from the first sheet of a workbook.
func ReadXLSX(r io.Reader) (*reference.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedTable)
	}
	// Formatted strings would carry the cell's display rounding.
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrMalformedTable, sheets[0], err)
	}
	return parseRecords(records)
}

// Read reads a reference table in format.
func Read(r io.Reader, format Format) (*reference.Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", ErrUnrecognisedFile, format)
}
