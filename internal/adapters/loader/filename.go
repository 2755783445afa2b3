package loader

import (
	"fmt"
	"path"
	"strings"

	"github.com/okian/growthchart/internal/domain/growth"
)

// Format is a reference file encoding.
type Format string

// Supported encodings.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FileInfo is what a reference file name says about its contents.
type FileInfo struct {
	Sex    growth.Sex
	Metric growth.Metric
	Range  growth.AgeRange
	Format Format
}

// Filename returns the canonical name, e.g. "wfa.boys.0_5.xlsx".
func (fi FileInfo) Filename() string {
	return fmt.Sprintf("%s.%s.%s.%s", fi.Metric.Code(), fi.Sex.Population(), fi.Range, fi.Format)
}

// ParseFilename parses "<metric>.<sex>.<min>_<max>.<xlsx|csv>". Metric and sex accept the
// aliases of growth.ParseMetric and growth.ParseSex.
func ParseFilename(name string) (FileInfo, error) {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) != 4 {
		return FileInfo{}, fmt.Errorf("%w: %q", ErrUnrecognisedFile, name)
	}

	metric, err := growth.ParseMetric(parts[0])
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %q: %w", ErrUnrecognisedFile, name, err)
	}
	sex, err := growth.ParseSex(parts[1])
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %q: %w", ErrUnrecognisedFile, name, err)
	}
	ages, err := growth.ParseAgeRange(parts[2])
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %q: %w", ErrUnrecognisedFile, name, err)
	}

	format := Format(strings.ToLower(parts[3]))
	if format != FormatXLSX && format != FormatCSV {
		return FileInfo{}, fmt.Errorf("%w: %q: unsupported extension", ErrUnrecognisedFile, name)
	}
	return FileInfo{Sex: sex, Metric: metric, Range: ages, Format: format}, nil
}
