package growth

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// daysPerMonth is the month length used to express measurement ages as fractional months.
const daysPerMonth = 30

// ErrInvalidChild reports a child whose date of birth is missing or not in the past.
var ErrInvalidChild = errors.New("invalid child")

// Child identifies the subject of a series of measurements.
type Child struct {
	Name string
	Sex  Sex
	DOB  time.Time
}

// NewChild validates the sex alias and that dob lies strictly before now.
func NewChild(name, sex string, dob, now time.Time) (Child, error) {
	s, err := ParseSex(sex)
	if err != nil {
		return Child{}, err
	}
	if dob.IsZero() || !dob.Before(now) {
		return Child{}, fmt.Errorf("%w: date of birth %s must be in the past", ErrInvalidChild, dob.Format(time.DateOnly))
	}
	return Child{Name: name, Sex: s, DOB: dob}, nil
}

// AgeYears returns completed years at t.
func (c Child) AgeYears(t time.Time) int {
	years := t.Year() - c.DOB.Year()
	if t.Month() < c.DOB.Month() || (t.Month() == c.DOB.Month() && t.Day() < c.DOB.Day()) {
		years--
	}
	return years
}

// AgeMonths returns the calendar month difference between DOB and t.
func (c Child) AgeMonths(t time.Time) int {
	return int(t.Month()) - int(c.DOB.Month()) + 12*(t.Year()-c.DOB.Year())
}

// MeasurementMonths returns the age at date as days/30, rounded to two decimals.
func (c Child) MeasurementMonths(date time.Time) float64 {
	days := math.Floor(date.Sub(c.DOB).Hours() / 24)
	return math.Round(days/daysPerMonth*100) / 100
}
