package types

import (
	"fmt"
	"strings"
)

// Money represents a storefront-reported price in the smallest currency
// unit. All arithmetic is integer-only — no floating point.
//
// Storefronts report prices in different shapes (Google Play uses micros,
// Apple uses decimal strings); drivers normalize into this type.
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, pence, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "eur", "gbp"
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// FromMicros converts a micro-unit amount (Google Play price format,
// 1,000,000 micros per currency unit) into smallest-unit Money.
func FromMicros(micros int64, currency string) Money {
	return Money{Amount: micros / 10000, Currency: strings.ToLower(currency)}
}

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// String formats the Money as "<amount> <currency>", e.g. "499 usd".
// Display formatting is left to callers; this is for logs and diagnostics.
func (m Money) String() string {
	if m.Currency == "" {
		return fmt.Sprintf("%d", m.Amount)
	}
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %q vs %q", m.Currency, other.Currency))
	}
}
