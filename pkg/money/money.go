// Package money holds the canonical rounding and comparison rules for every
// monetary amount handled by the financing engine.
package money

import (
	"github.com/shopspring/decimal"
)

// Tolerance is the cent-level slack allowed when a payment is checked against
// a maximum.
const Tolerance = 0.01

var hundredth = decimal.New(1, -2)

// Dec converts x to a decimal rounded to 2 places.
func Dec(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(2)
}

// Round2 rounds x to exactly 2 decimal places, half away from zero, on the
// shortest decimal representation of x rather than its binary value, so
// 1.005 rounds to 1.01.
func Round2(x float64) float64 {
	return Dec(x).InexactFloat64()
}

// ApproxLTE reports whether a - b <= tolerance after both sides are rounded.
func ApproxLTE(a, b, tolerance float64) bool {
	return Dec(a).Sub(Dec(b)).LessThanOrEqual(decimal.NewFromFloat(tolerance))
}

// Overshoots reports whether a exceeds b by tolerance or more once both are
// rounded. With the cent tolerance any whole extra cent overshoots, while
// binary noise below a cent never does.
func Overshoots(a, b, tolerance float64) bool {
	return Dec(a).Sub(Dec(b)).GreaterThanOrEqual(decimal.NewFromFloat(tolerance))
}

// Add returns round2(a + b).
func Add(a, b float64) float64 {
	return Dec(a).Add(Dec(b)).InexactFloat64()
}

// Sub returns round2(a - b).
func Sub(a, b float64) float64 {
	return Dec(a).Sub(Dec(b)).InexactFloat64()
}

// Sum adds the rounded values of xs without intermediate binary drift.
func Sum(xs ...float64) float64 {
	total := decimal.Zero
	for _, x := range xs {
		total = total.Add(Dec(x))
	}
	return total.InexactFloat64()
}

// Covers reports whether paid settles due to the cent.
func Covers(paid, due float64) bool {
	return Dec(paid).GreaterThanOrEqual(Dec(due))
}

// Equal reports whether a and b are the same amount to the cent.
func Equal(a, b float64) bool {
	return Dec(a).Equal(Dec(b))
}

// IsPositive reports whether x is at least one cent.
func IsPositive(x float64) bool {
	return Dec(x).GreaterThanOrEqual(hundredth)
}
