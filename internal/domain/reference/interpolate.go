package reference

import (
	"fmt"
	"math"

	"github.com/okian/growthchart/internal/domain/growth"
)

// nearestMonthCutoff is the age (months) at or below which rows are read by nearest whole month.
const nearestMonthCutoff = 1

// Interpolate returns the LMS parameters of table at ageMonths.
//
// Ages up to one month are rounded to the nearest whole month (half to even) and read directly,
// bypassing any finer-grained rows near birth. Older ages are linearly interpolated between the
// bracketing rows; a tabulated age is returned exactly. Ages before the first or after the last
// row fail with growth.ErrDomain.
func Interpolate(table *Table, ageMonths float64) (growth.LMS, error) {
	if table == nil || table.Len() == 0 {
		return growth.LMS{}, fmt.Errorf("%w: empty table", growth.ErrDomain)
	}
	if !finite(ageMonths) {
		return growth.LMS{}, fmt.Errorf("%w: age %g", growth.ErrDomain, ageMonths)
	}

	if ageMonths < table.MinAge() {
		return growth.LMS{}, fmt.Errorf("%w: age %g before first tabulated age %g", growth.ErrDomain, ageMonths, table.MinAge())
	}

	if ageMonths <= nearestMonthCutoff {
		month := math.RoundToEven(ageMonths)
		row, ok := table.At(month)
		if !ok {
			return growth.LMS{}, fmt.Errorf("%w: no row at month %g", growth.ErrDomain, month)
		}
		return row.LMS, nil
	}

	i := table.search(ageMonths)
	if i == table.Len() {
		return growth.LMS{}, fmt.Errorf("%w: age %g after last tabulated age %g", growth.ErrDomain, ageMonths, table.MaxAge())
	}
	upper := table.rows[i]
	if upper.Month == ageMonths {
		return upper.LMS, nil
	}
	lower := table.rows[i-1]

	frac := (ageMonths - lower.Month) / (upper.Month - lower.Month)
	return growth.LMS{
		L: lerp(lower.L, upper.L, frac),
		M: lerp(lower.M, upper.M, frac),
		S: lerp(lower.S, upper.S, frac),
	}, nil
}

func lerp(lo, hi, frac float64) float64 {
	return lo + frac*(hi-lo)
}
