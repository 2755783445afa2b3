package growth

import "errors"

// Sentinel error kinds shared by the engine and its collaborators. Callers match them with errors.Is.
var (
	// ErrLookup reports an unknown sex or metric, or an age no partition covers.
	ErrLookup = errors.New("growth table lookup failed")
	// ErrDomain reports an age outside a resolved table's tabulated range.
	ErrDomain = errors.New("age outside tabulated range")
	// ErrComputation reports a z-score formula that divided by zero or produced a non-finite value.
	ErrComputation = errors.New("z-score computation failed")
	// ErrValidation reports a missing, zero, negative or non-finite measurement.
	ErrValidation = errors.New("invalid measurement")
	// ErrNoTableResolved reports a batch in which no measured row resolved a reference table.
	ErrNoTableResolved = errors.New("no reference table resolved for any row")
)
