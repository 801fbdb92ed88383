package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Non-negative fixed-precision amount
// =============================================================================

// Money is a non-negative amount backed by a fixed-precision decimal.
// Every amount the engine touches goes through this type: repeated
// additions and subtractions over thousands of ledger rows must never
// accumulate binary floating-point drift.
//
// INVARIANT: a Money value is never negative. Sub returns an
// UnderflowError instead of producing a negative result, because no
// ledger quantity (gross, paid, remaining, allocation) is ever negative.
type Money struct {
	value decimal.Decimal
}

// NewMoney creates a Money from an integer number of currency units.
func NewMoney(units int64) Money {
	return Money{value: decimal.NewFromInt(units)}
}

// ParseMoney parses a decimal string (e.g. "150000" or "99.50").
// Negative values are rejected with an InvalidInputError.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &InvalidInputError{Field: "amount", Reason: "not a decimal: " + s}
	}
	if d.IsNegative() {
		return Money{}, &InvalidInputError{Field: "amount", Reason: "negative amount: " + s}
	}
	return Money{value: d}, nil
}

// MustMoney is ParseMoney for constants and tests; it panics on bad input.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{value: m.value.Add(o.value)} }

// Sub subtracts o from m. If the result would be negative it returns an
// UnderflowError: that always indicates an invariant violation upstream,
// so it is surfaced rather than clamped.
func (m Money) Sub(o Money) (Money, error) {
	r := m.value.Sub(o.value)
	if r.IsNegative() {
		return Money{}, &UnderflowError{From: m, Subtract: o}
	}
	return Money{value: r}, nil
}

// SubFloor subtracts o from m, flooring at zero. This is the display-facing
// variant used only by the totals aggregator; allocation math must use Sub.
func (m Money) SubFloor(o Money) Money {
	r := m.value.Sub(o.value)
	if r.IsNegative() {
		return Money{}
	}
	return Money{value: r}
}

// Min returns the smaller of m and o.
func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) Cmp(o Money) int          { return m.value.Cmp(o.value) }
func (m Money) Equal(o Money) bool       { return m.value.Equal(o.value) }
func (m Money) LessThan(o Money) bool    { return m.value.LessThan(o.value) }
func (m Money) GreaterThan(o Money) bool { return m.value.GreaterThan(o.value) }
func (m Money) String() string           { return m.value.String() }

// Decimal exposes the underlying decimal for formatting layers.
func (m Money) Decimal() decimal.Decimal { return m.value }

// SumPayments returns the total of a payment set (the pool in pool mode).
func SumPayments(payments []Payment) Money {
	total := Money{}
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
