// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"fmt"
	"math"

	"github.com/iwvelando/finance-formula/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for display and logical comparisons, never inside formula evaluation.
func Round(val float64) float64 {
	scaled := val * constants.DecimalPrecision
	if math.IsInf(scaled, 0) {
		// Magnitudes this large carry no cents.
		return val
	}
	return math.Round(scaled) / constants.DecimalPrecision
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// PerMonth spreads an amount that recurs every frequency months over a
// single month. A zero or negative frequency is an error rather than a
// division producing Inf or a sign flip.
func PerMonth(amount float64, frequency int) (float64, error) {
	if frequency <= 0 {
		return 0, fmt.Errorf("frequency must be a positive number of months, got %d", frequency)
	}
	return amount / float64(frequency), nil
}

// Annualize converts a monthly amount into a yearly amount.
func Annualize(monthly float64) float64 {
	return monthly * constants.MonthsPerYear
}
