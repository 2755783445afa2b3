// Package reference holds immutable WHO reference tables and the LMS interpolation over them.
package reference

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/okian/growthchart/internal/domain/growth"
)

// ErrInvalidTable reports rows that violate the table invariants.
var ErrInvalidTable = errors.New("invalid reference table")

// Table is an age-indexed sequence of LMS rows for one sex, metric and age range.
// A Table never changes after NewTable returns; it is safe for concurrent use.
type Table struct {
	rows []growth.Row
}

// NewTable copies rows and validates them: at least one row, ages strictly increasing,
// L, M and S finite, M > 0 and S > 0.
func NewTable(rows []growth.Row) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidTable)
	}
	owned := make([]growth.Row, len(rows))
	copy(owned, rows)

	for i, r := range owned {
		if !finite(r.Month) {
			return nil, fmt.Errorf("%w: row %d: non-finite age", ErrInvalidTable, i)
		}
		if i > 0 && r.Month <= owned[i-1].Month {
			return nil, fmt.Errorf("%w: row %d: age %g not after %g", ErrInvalidTable, i, r.Month, owned[i-1].Month)
		}
		if !finite(r.L) || !finite(r.M) || !finite(r.S) {
			return nil, fmt.Errorf("%w: month %g: non-finite LMS", ErrInvalidTable, r.Month)
		}
		if r.M <= 0 || r.S <= 0 {
			return nil, fmt.Errorf("%w: month %g: M and S must be positive (M=%g S=%g)", ErrInvalidTable, r.Month, r.M, r.S)
		}
	}
	return &Table{rows: owned}, nil
}

// Len returns the number of tabulated ages.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows in age order.
func (t *Table) Rows() []growth.Row {
	out := make([]growth.Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// MinAge returns the first tabulated age in months.
func (t *Table) MinAge() float64 { return t.rows[0].Month }

// MaxAge returns the last tabulated age in months.
func (t *Table) MaxAge() float64 { return t.rows[len(t.rows)-1].Month }

// At returns the row tabulated at exactly month.
func (t *Table) At(month float64) (growth.Row, bool) {
	i := t.search(month)
	if i < len(t.rows) && t.rows[i].Month == month {
		return t.rows[i], true
	}
	return growth.Row{}, false
}

// search returns the index of the first row with Month >= age.
func (t *Table) search(age float64) int {
	return sort.Search(len(t.rows), func(i int) bool { return t.rows[i].Month >= age })
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
