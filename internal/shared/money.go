package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount that always renders with two fractional digits.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// ParseMoney parses a decimal string. Empty or malformed input yields zero.
func ParseMoney(raw string) Money {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Money{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}
	}
	return Money{Decimal: d}
}

// String formats the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// MarshalJSON encodes the amount as a quoted two-digit string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts quoted or bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}
