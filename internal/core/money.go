// Package core holds the domain model and the financial computation
// primitives: integer-cents money, the document totals calculator and the
// numbering/sorting helpers shared by devis and factures.
//
// Everything in this package is pure: no I/O, no clock, no shared state.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is a monetary amount in euro cents. Keeping money in integer minor
// units makes every intermediate amount exactly representable at 2-decimal
// precision and removes the float epsilon workarounds a float representation
// would need near .005 boundaries.
type Money struct {
	Cents int64
}

// RoundCents rounds a fractional cent value half away from zero.
// NaN and infinities degrade to 0 so dirty input never poisons a total.
func RoundCents(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v >= 0 {
		return int64(math.Floor(v + 0.5))
	}
	return -int64(math.Floor(-v + 0.5))
}

// Round2 rounds a percentage or ratio to 2 decimal places, half away from
// zero. Used for margin and conversion rates, never for money itself.
func Round2(v float64) float64 {
	return float64(RoundCents(v*100)) / 100
}

// num sanitizes a float input: NaN and infinities become 0.
func num(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FromEuros converts a euro amount to Money, rounding half away from zero.
func FromEuros(v float64) Money {
	return Money{Cents: RoundCents(num(v) * 100)}
}

// Euros returns the euro value as a float64 for display and JSON output.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o. The result may be negative (margins).
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// MulRate multiplies the amount by a percentage rate, rounding to cents.
func (m Money) MulRate(pct float64) Money {
	return Money{Cents: RoundCents(float64(m.Cents) * num(pct) / 100)}
}

// Scale multiplies the amount by an arbitrary ratio, rounding to cents.
func (m Money) Scale(ratio float64) Money {
	return Money{Cents: RoundCents(float64(m.Cents) * num(ratio))}
}

// MarshalJSON encodes the amount as a plain euro number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Euros(), 'f', 2, 64)), nil
}

// UnmarshalJSON accepts a euro number (12.34) or a quoted decimal string
// ("12,34" with a decimal comma is tolerated, as in form input).
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		m.Cents = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return fmt.Errorf("money %q: %w", s, err)
	}
	m.Cents = cents
	return nil
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot and comma separators are
// accepted. A leading minus is allowed (margins and balances can be
// negative); an empty or non-numeric string is an error.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe || (iv == maxSafe && fracCents > (1<<63-1)-maxSafe*100) {
		return 0, ErrInvalidAmount
	}

	cents := iv*100 + fracCents
	if neg {
		cents = -cents
	}
	return cents, nil
}
