package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency.
// Amount is stored as BIGINT paise (10^-2) to avoid floating point errors.
type Money struct {
	Amount   int64  // paise
	Currency string // ISO 4217
}

// NewMoney creates a new Money instance from paise.
func NewMoney(amount int64, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// ToDecimal converts the int64 paise to a shopspring/decimal rupee value.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(100))
}

// FromDecimal converts a decimal rupee value to int64 paise.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).IntPart()
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Currency)
}

// ProcessingFee computes the payout fee for a gross amount:
// rate-proportional with a fixed floor. Rounds half-up to whole paise.
func ProcessingFee(amount int64, rate decimal.Decimal, minimum int64) int64 {
	fee := decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
	if fee < minimum {
		return minimum
	}
	return fee
}
