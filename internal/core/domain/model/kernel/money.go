package kernel

import (
	"encoding/json"
	"fmt"

	"ordersync/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// Money is a non-negative monetary amount in the marketplace currency.
// Arithmetic goes through github.com/shopspring/decimal so that sums of item
// prices never drift the way float64 sums do.
//
// The zero value is a valid amount of 0.
type Money struct {
	amount decimal.Decimal
}

// ZeroMoney is the additive identity.
var ZeroMoney = Money{amount: decimal.Zero}

// NewMoney creates Money from a decimal amount. Negative amounts are rejected.
func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, errs.NewValueIsOutOfRangeError("money", amount.String(), 0, "unbounded")
	}
	return Money{amount: amount}, nil
}

// MoneyFromString parses a decimal string such as "12.50".
func MoneyFromString(s string) (Money, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, errs.NewValueIsInvalidErrorWithCause("money", err)
	}
	return NewMoney(amount)
}

// MustMoney parses s and panics on failure. Intended for constants and tests.
func MustMoney(s string) Money {
	m, err := MoneyFromString(s)
	if err != nil {
		panic(fmt.Sprintf("kernel: invalid money literal %q: %v", s, err))
	}
	return m
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Times returns m multiplied by a quantity.
func (m Money) Times(quantity int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(quantity)))}
}

// IsEqual compares amounts numerically, so "5" equals "5.00".
func (m Money) IsEqual(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Decimal exposes the underlying amount.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// String renders the amount with two fractional digits.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.String())
}

// UnmarshalJSON accepts both decimal strings and JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(data); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("money", err)
	}
	parsed, err := NewMoney(amount)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
