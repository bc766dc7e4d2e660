package models

import (
	"fmt"
	"math"
)

// Money represents a monetary amount in minor units (cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney converts a major-unit amount (e.g. 500.00) into Money.
// Half-up rounding to the nearest cent.
func NewMoney(amount float64, currency string) Money {
	return Money{
		Amount:   int64(math.Floor(amount*100 + 0.5)),
		Currency: currency,
	}
}

// ToFloat returns the amount in major units.
func (m Money) ToFloat() float64 {
	return float64(m.Amount) / 100
}

// Add returns the sum of two amounts. Currencies must match.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.ToFloat(), m.Currency)
}
