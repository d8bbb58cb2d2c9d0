package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All balance arithmetic in the core is int64 minor units (cents for USD).
// Decimal conversion happens only at the display boundary.

// FormatMinor renders a minor-unit amount as a display string, e.g.
// FormatMinor(12345, 2) -> "123.45".
func FormatMinor(amount int64, exponent int32) string {
	return decimal.New(amount, -exponent).StringFixed(exponent)
}

// ParseMinor converts a display string into minor units, rejecting values
// with more fractional digits than the currency allows.
func ParseMinor(s string, exponent int32) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	scaled := d.Shift(exponent)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, exponent)
	}
	return scaled.IntPart(), nil
}
