// Package money converts between decimal major-unit strings ("6.00") and
// integer minor units (600).
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// ParseMinor parses a decimal amount in major units and returns minor units,
// rounding half away from zero to whole cents.
func ParseMinor(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

// ParsePositiveMinor is ParseMinor restricted to amounts of at least one cent.
func ParsePositiveMinor(s string) (int64, error) {
	v, err := ParseMinor(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	return v, nil
}

// FormatMinor renders minor units as a fixed two-decimal string.
func FormatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// FromFloat converts a major-unit float as sent by JSON clients.
func FromFloat(f float64) int64 {
	return decimal.NewFromFloat(f).Mul(hundred).Round(0).IntPart()
}
