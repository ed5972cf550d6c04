package errors

import (
	"fmt"
	"math"
)

// NonFiniteError reports NaN or Inf values in a column that must be finite,
// such as a stratification label or a target.
type NonFiniteError struct {
	Column string
	// Index is the first offending event index.
	Index int
	Value float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("foldfile: column '%s' has non-finite value %v at event %d", e.Column, e.Value, e.Index)
}

// CheckFinite returns a NonFiniteError for the first NaN or Inf in values.
func CheckFinite(column string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return WithStack(&NonFiniteError{Column: column, Index: i, Value: v})
		}
	}
	return nil
}

// CheckIntegral reports whether every value has no fractional part.
// Callers emit a DataConversionWarning when it returns false for an int target.
func CheckIntegral(values []float64) bool {
	for _, v := range values {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}
