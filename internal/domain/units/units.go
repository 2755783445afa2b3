// Package units converts weights and lengths to the kilograms and centimetres the reference
// tables are tabulated in, and cleans the unit-suffixed strings found in baby-tracker exports.
package units

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnknownUnit reports a unit with no conversion.
var ErrUnknownUnit = errors.New("unknown unit")

// WeightUnit names a mass unit.
type WeightUnit string

// Supported weight units. PoundsOunces values are written "<lb>.<oz>", so "7.8" is 7 lb 8 oz.
const (
	Kilograms    WeightUnit = "kg"
	Pounds       WeightUnit = "lbs"
	PoundsOunces WeightUnit = "lbs.oz"
	Grams        WeightUnit = "g"
	Ounces       WeightUnit = "oz"
)

// LengthUnit names a length unit.
type LengthUnit string

// Supported length units.
const (
	Centimetres LengthUnit = "cm"
	Metres      LengthUnit = "m"
	Inches      LengthUnit = "in"
	Feet        LengthUnit = "ft"
)

const (
	kgPerLb   = 0.453592
	kgPerOz   = 0.0283495
	lbPerKg   = 2.20462
	ozPerLb   = 16
	cmPerIn   = 2.54
	cmPerFt   = 30.48
	ftPerM    = 3.28084
	inPerFoot = 12
)

// ToKilograms converts a weight written in unit to kilograms.
func ToKilograms(value string, unit WeightUnit) (float64, error) {
	if unit == PoundsOunces {
		lb, oz, err := splitPoundsOunces(value)
		if err != nil {
			return 0, err
		}
		return float64(lb)*kgPerLb + float64(oz)*kgPerOz, nil
	}

	v, err := parse(value)
	if err != nil {
		return 0, err
	}
	switch unit {
	case Kilograms:
		return v, nil
	case Pounds:
		return v * kgPerLb, nil
	case Grams:
		return v / 1000, nil
	case Ounces:
		return v * kgPerOz, nil
	}
	return 0, fmt.Errorf("%w: weight %q", ErrUnknownUnit, unit)
}

// ToPounds converts a weight written in unit to pounds.
func ToPounds(value string, unit WeightUnit) (float64, error) {
	if unit == PoundsOunces {
		lb, oz, err := splitPoundsOunces(value)
		if err != nil {
			return 0, err
		}
		return float64(lb) + float64(oz)/ozPerLb, nil
	}

	v, err := parse(value)
	if err != nil {
		return 0, err
	}
	switch unit {
	case Pounds:
		return v, nil
	case Kilograms:
		return v * lbPerKg, nil
	case Grams:
		return v * lbPerKg / 1000, nil
	case Ounces:
		return v / ozPerLb, nil
	}
	return 0, fmt.Errorf("%w: weight %q", ErrUnknownUnit, unit)
}

// ToCentimetres converts a length in unit to centimetres.
func ToCentimetres(v float64, unit LengthUnit) (float64, error) {
	switch unit {
	case Centimetres:
		return v, nil
	case Metres:
		return v * 100, nil
	case Inches:
		return v * cmPerIn, nil
	case Feet:
		return v * cmPerFt, nil
	}
	return 0, fmt.Errorf("%w: length %q", ErrUnknownUnit, unit)
}

// ToFeet converts a length in unit to feet.
func ToFeet(v float64, unit LengthUnit) (float64, error) {
	switch unit {
	case Feet:
		return v, nil
	case Inches:
		return v / inPerFoot, nil
	case Metres:
		return v * ftPerM, nil
	case Centimetres:
		return v * ftPerM / 100, nil
	}
	return 0, fmt.Errorf("%w: length %q", ErrUnknownUnit, unit)
}

// BMI returns the body mass index for a weight in kilograms and a height in centimetres.
// A missing or zero height yields NaN.
func BMI(weightKg, heightCm float64) float64 {
	if math.IsNaN(weightKg) || math.IsNaN(heightCm) || heightCm == 0 {
		return math.NaN()
	}
	m := heightCm / 100
	return weightKg / (m * m)
}

var (
	weightPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kg|lbs\.oz|lbs)`)
	lengthPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(ft\.in|ft|cm|in)`)
)

// Huckleberry labels decimal pounds "lbs.oz" and decimal feet "ft.in".
var (
	weightSuffixes = map[string]WeightUnit{"kg": Kilograms, "lbs": Pounds, "lbs.oz": Pounds}
	lengthSuffixes = map[string]LengthUnit{"cm": Centimetres, "in": Inches, "ft": Feet, "ft.in": Feet}
)

// CleanupWeight parses a unit-suffixed weight such as "7.5kg" or "15.2lbs.oz" into kilograms.
// Empty or unrecognised input is reported as missing (NaN).
func CleanupWeight(s string) float64 {
	m := weightPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return math.NaN()
	}
	kg, err := ToKilograms(m[1], weightSuffixes[m[2]])
	if err != nil {
		return math.NaN()
	}
	return kg
}

// CleanupLength parses a unit-suffixed length such as "60cm" or "2ft.in" into centimetres.
// Empty input is missing (NaN); anything else that does not parse is an error.
func CleanupLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	m := lengthPattern.FindStringSubmatch(s)
	if m == nil {
		return math.NaN(), fmt.Errorf("invalid length %q", s)
	}
	v, err := parse(m[1])
	if err != nil {
		return math.NaN(), err
	}
	return ToCentimetres(v, lengthSuffixes[m[2]])
}

func parse(value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", value, err)
	}
	return v, nil
}

func splitPoundsOunces(value string) (int, int, error) {
	lbPart, ozPart, _ := strings.Cut(strings.TrimSpace(value), ".")
	lb, err := strconv.Atoi(lbPart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pounds in %q: %w", value, err)
	}
	oz := 0
	if ozPart != "" {
		if oz, err = strconv.Atoi(ozPart); err != nil {
			return 0, 0, fmt.Errorf("invalid ounces in %q: %w", value, err)
		}
	}
	return lb, oz, nil
}
