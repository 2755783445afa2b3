// Package zscore implements the WHO LMS z-score formulas and the z-score to percentile conversion.
//
// There are exactly two formulas. BoxCox is used for skewed indicators (weight, BMI) and applies
// the WHO tail correction beyond ±3 SD; Linear is used for length/height and head circumference
// and is unbounded.
package zscore

import (
	"fmt"
	"math"

	"github.com/okian/growthchart/internal/domain/growth"
)

// tailSD is where the BoxCox correction replaces the uncorrected indicator.
const tailSD = 3

// Formula selects one of the two LMS z-score formulas.
type Formula int

// Supported formulas.
const (
	BoxCox Formula = iota + 1
	Linear
)

func (f Formula) String() string {
	switch f {
	case BoxCox:
		return "boxcox"
	case Linear:
		return "linear"
	}
	return fmt.Sprintf("formula(%d)", int(f))
}

// FormulaFor returns the formula WHO prescribes for metric.
func FormulaFor(metric growth.Metric) (Formula, error) {
	switch metric {
	case growth.Weight, growth.BMI:
		return BoxCox, nil
	case growth.Height, growth.HeadCircumference:
		return Linear, nil
	}
	return 0, fmt.Errorf("%w: no z-score formula for metric %q", growth.ErrLookup, metric)
}

// Model is a measurement y paired with the LMS parameters at the subject's age.
type Model struct {
	Formula Formula
	LMS     growth.LMS
	Y       float64
}

// New builds a Model for metric.
func New(metric growth.Metric, lms growth.LMS, y float64) (Model, error) {
	f, err := FormulaFor(metric)
	if err != nil {
		return Model{}, err
	}
	return Model{Formula: f, LMS: lms, Y: y}, nil
}

// ZScore evaluates the model's formula. Zero L or S, or any non-finite intermediate,
// fails with growth.ErrComputation.
func (m Model) ZScore() (float64, error) {
	if m.LMS.L == 0 || m.LMS.S == 0 {
		return 0, m.fault("division by zero")
	}
	zind := m.indicator(m.Y)
	if !finite(zind) {
		return 0, m.fault("non-finite indicator")
	}

	switch m.Formula {
	case Linear:
		return zind, nil
	case BoxCox:
		return m.corrected(zind)
	}
	return 0, fmt.Errorf("%w: unknown formula %s", growth.ErrComputation, m.Formula)
}

// Percentile returns the percentile of the model's z-score.
func (m Model) Percentile() (float64, error) {
	z, err := m.ZScore()
	if err != nil {
		return 0, err
	}
	return Percentile(z), nil
}

// indicator is the uncorrected Zind = ((y/M)^L - 1) / (S*L).
func (m Model) indicator(y float64) float64 {
	return (math.Pow(y/m.LMS.M, m.LMS.L) - 1) / (m.LMS.S * m.LMS.L)
}

// SD returns the measurement at x standard deviations, M*(1+L*S*x)^(1/L).
func (m Model) SD(x float64) float64 {
	return m.LMS.M * math.Pow(1+m.LMS.L*m.LMS.S*x, 1/m.LMS.L)
}

func (m Model) corrected(zind float64) (float64, error) {
	var z float64
	switch {
	case zind > tailSD:
		sd3, sd2 := m.SD(tailSD), m.SD(tailSD-1)
		z = tailSD + (m.Y-sd3)/(sd3-sd2)
	case zind < -tailSD:
		sd3, sd2 := m.SD(-tailSD), m.SD(-(tailSD - 1))
		z = -tailSD + (m.Y-sd3)/(sd2-sd3)
	default:
		return zind, nil
	}
	if !finite(z) {
		return 0, m.fault("non-finite tail correction")
	}
	return z, nil
}

func (m Model) fault(reason string) error {
	return fmt.Errorf("%w: %s (%s L=%g M=%g S=%g y=%g)",
		growth.ErrComputation, reason, m.Formula, m.LMS.L, m.LMS.M, m.LMS.S, m.Y)
}

// Percentile converts z to a percentile with the standard normal CDF. The result always lies in
// the open interval (0, 100) even where float64 saturates.
func Percentile(z float64) float64 {
	p := 0.5 * math.Erfc(-z/math.Sqrt2) * 100
	switch {
	case p <= 0:
		return math.SmallestNonzeroFloat64
	case p >= 100:
		return math.Nextafter(100, 0)
	}
	return p
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
