// Package units converts between on-chain minor units and real token quantities.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount string is not a valid number.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrNegativeDecimals is returned for a negative decimals value.
var ErrNegativeDecimals = errors.New("negative decimals")

// ParseMinor parses an integer minor-unit amount as reported by the feed.
func ParseMinor(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return d, nil
}

// ToReal converts a minor-unit amount to its real quantity: amount / 10^decimals.
func ToReal(minor decimal.Decimal, decimals int) (decimal.Decimal, error) {
	if decimals < 0 {
		return decimal.Zero, ErrNegativeDecimals
	}
	return minor.Shift(int32(-decimals)), nil
}

// ToRealQuantity parses raw minor units and returns the real quantity as float64.
func ToRealQuantity(raw string, decimals int) (float64, error) {
	minor, err := ParseMinor(raw)
	if err != nil {
		return 0, err
	}
	q, err := ToReal(minor, decimals)
	if err != nil {
		return 0, err
	}
	return q.InexactFloat64(), nil
}

// ToMinorUnits converts a real quantity to integer minor units, rounding half away from zero.
func ToMinorUnits(quantity float64, decimals int) (string, error) {
	if decimals < 0 {
		return "", ErrNegativeDecimals
	}
	d := decimal.NewFromFloat(quantity).Shift(int32(decimals)).Round(0)
	return d.String(), nil
}

// FormatReal renders a real quantity without trailing zeros.
// Used for provider APIs that take human amounts.
func FormatReal(minor decimal.Decimal, decimals int) string {
	q, err := ToReal(minor, decimals)
	if err != nil {
		return minor.String()
	}
	return q.String()
}
