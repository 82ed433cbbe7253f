// Package format renders numbers for human-readable output.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := NumericCurrency(math.Abs(amount))
	if amount < 0 && formatted != "0.00" {
		return "-$" + formatted
	}
	return "$" + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	return printer.Sprintf("%.2f", amount)
}

// Number renders a formula result with separators and up to six fraction
// digits, without padding (e.g., "7,800" or "0.125").
func Number(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return printer.Sprint(value)
	}
	return printer.Sprint(number.Decimal(value, number.MaxFractionDigits(6)))
}
