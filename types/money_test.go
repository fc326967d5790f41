package types_test

import (
	"testing"

	"github.com/xraph/iap/types"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    types.Money
		amount   int64
		currency string
	}{
		{"USD", types.USD(4900), 4900, "usd"},
		{"EUR", types.EUR(19900), 19900, "eur"},
		{"Zero", types.Zero("GBP"), 0, "gbp"},
		{"FromMicros", types.FromMicros(4990000, "USD"), 499, "usd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("amount = %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("currency = %q, want %q", tt.money.Currency, tt.currency)
			}
		})
	}
}

func TestMoneyAdd(t *testing.T) {
	sum := types.USD(100).Add(types.USD(250))
	if !sum.Equal(types.USD(350)) {
		t.Errorf("sum = %v, want 350 usd", sum)
	}
}

func TestMoneyAddCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()
	types.USD(100).Add(types.EUR(100))
}

func TestMoneyMultiply(t *testing.T) {
	got := types.USD(499).Multiply(3)
	if got.Amount != 1497 {
		t.Errorf("amount = %d, want 1497", got.Amount)
	}
}

func TestMoneyPredicates(t *testing.T) {
	if !types.Zero("usd").IsZero() {
		t.Error("zero should be zero")
	}
	if !types.USD(1).IsPositive() {
		t.Error("1 cent should be positive")
	}
	if types.USD(100).Equal(types.EUR(100)) {
		t.Error("different currencies should not be equal")
	}
}

func TestMoneyString(t *testing.T) {
	if got := types.USD(499).String(); got != "499 usd" {
		t.Errorf("String() = %q, want %q", got, "499 usd")
	}
	if got := (types.Money{Amount: 7}).String(); got != "7" {
		t.Errorf("String() without currency = %q, want %q", got, "7")
	}
}
