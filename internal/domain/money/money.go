// Package money provides an exact currency amount type.
//
// Amounts are stored as an integer count of micro-units (one millionth of
// the major currency unit). Report and ledger values are parsed and
// formatted through shopspring/decimal so no float rounding ever reaches
// the reconciliation math.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in micro-units.
type Money int64

const (
	// Micro is the number of micro-units per major unit.
	Micro Money = 1_000_000

	// Cent is the number of micro-units per minor unit.
	Cent Money = 10_000

	// Epsilon absorbs import noise when comparing amounts.
	Epsilon Money = 10
)

var microExp = decimal.New(1, 6)

// FromCents builds an amount from a count of cents.
func FromCents(cents int64) Money {
	return Money(cents) * Cent
}

// FromDecimal converts a decimal amount in major units, rounding half away
// from zero to the nearest micro-unit.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(microExp).Round(0).IntPart())
}

// Parse parses strings like "$1,234.56", "-$3.00", "($3.00)" or "12.5".
// An empty string parses as zero.
func Parse(s string) (Money, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	if strings.HasPrefix(cleaned, "-") {
		negative = !negative
		cleaned = cleaned[1:]
	}
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return FromDecimal(d), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -6)
}

// Float returns the amount in major units for wire formats that need it.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// String formats the amount as dollars and cents, e.g. "$42.00" or "-$3.10".
func (m Money) String() string {
	d := m.Decimal().Round(2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// RoundToCent rounds half away from zero to the nearest cent.
func (m Money) RoundToCent() Money {
	return FromDecimal(m.Decimal().Round(2))
}

// NearlyEqual reports whether two amounts differ by less than Epsilon.
func NearlyEqual(a, b Money) bool {
	return (a - b).Abs() < Epsilon
}

// Sum adds up amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// Split divides m into n parts that sum exactly to m. The remainder is
// handed out one micro-unit at a time starting with the first part.
func (m Money) Split(n int) []Money {
	if n <= 0 {
		return nil
	}
	parts := make([]Money, n)
	base := m / Money(n)
	rem := m % Money(n)
	for i := range parts {
		parts[i] = base
	}
	step := Money(1)
	if rem < 0 {
		step = -1
		rem = -rem
	}
	for i := Money(0); i < rem; i++ {
		parts[i] += step
	}
	return parts
}

// SplitCents divides m into n parts that sum exactly to m, handing out
// whole cents starting with the first part. A sub-cent remainder stays on
// the first part, so parts are cent-aligned whenever m is.
func (m Money) SplitCents(n int) []Money {
	if n <= 0 {
		return nil
	}
	cents := m / Cent
	parts := Money(cents).Split(n)
	for i := range parts {
		parts[i] *= Cent
	}
	parts[0] += m - cents*Cent
	return parts
}
