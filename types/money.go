// Package types provides the fixed-point value types shared across fundraise.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedAmount is returned when a decimal literal cannot be represented
// as a whole number of cents.
var ErrMalformedAmount = errors.New("types: malformed amount")

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// maxExponent bounds a literal's decimal exponent. Rescaling a decimal
// costs 10^|exponent|, and no int64 cent value needs more than this.
const maxExponent int32 = 20

// Money is a monetary value in cents.
// All arithmetic is integer-only; no floating point.
//
// Examples:
//   - Cents(4900) = 49.00
//   - Cents(100000) = 1000.00
type Money int64

// Cents creates a Money value from a count of cents.
func Cents(c int64) Money { return Money(c) }

// ParseMoney parses a decimal literal such as "200", "200.5" or "200.50".
// Literals with more than two fractional digits are rejected rather than
// rounded, so a stored amount always equals what the caller typed.
func ParseMoney(s string) (Money, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty literal", ErrMalformedAmount)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return 0, fmt.Errorf("%w: %q is out of range", ErrMalformedAmount, s)
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, fmt.Errorf("%w: %q has more than 2 decimal places", ErrMalformedAmount, s)
	}

	shifted := d.Shift(2)
	if shifted.GreaterThan(maxCents) || shifted.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrMalformedAmount, s)
	}

	return Money(shifted.IntPart()), nil
}

// MustParseMoney is like ParseMoney but panics on error. Use for hardcoded values.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Arithmetic operations

// Add adds two Money values.
func (m Money) Add(other Money) Money { return m + other }

// Subtract subtracts another Money value.
func (m Money) Subtract(other Money) Money { return m - other }

// Cents returns the amount in cents.
func (m Money) Cents() int64 { return int64(m) }

// Decimal returns the amount as an exact decimal in major units.
func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -2) }

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m < 0 }

// LessThan returns true if this Money is less than other.
func (m Money) LessThan(other Money) bool { return m < other }

// GreaterThan returns true if this Money is greater than other.
func (m Money) GreaterThan(other Money) bool { return m > other }

// Min returns the smaller of two Money values.
func (m Money) Min(other Money) Money {
	if m < other {
		return m
	}
	return other
}

// Max returns the larger of two Money values.
func (m Money) Max(other Money) Money {
	if m > other {
		return m
	}
	return other
}

// Formatting methods

// FormatMajor returns the amount with exactly two decimals: "49.00" for Cents(4900).
func (m Money) FormatMajor() string {
	return formatHundredths(int64(m))
}

// String implements fmt.Stringer.
func (m Money) String() string { return m.FormatMajor() }

// MarshalJSON encodes the amount as a two-decimal string so that no client
// ever round-trips it through a binary float.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.FormatMajor())
}

// UnmarshalJSON accepts either a string literal or a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return fmt.Errorf("%w: null", ErrMalformedAmount)
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedAmount, err)
		}
		raw = s
	}

	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum calculates the sum of multiple Money values.
func Sum(values ...Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}

// formatHundredths renders a value stored in hundredths with two decimals.
func formatHundredths(v int64) string {
	negative := v < 0
	abs := uint64(v)
	if negative {
		abs = uint64(-(v + 1)) + 1
	}

	result := fmt.Sprintf("%d.%02d", abs/100, abs%100)
	if negative {
		return "-" + result
	}
	return result
}
