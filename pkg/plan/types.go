package plan

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Interval is the billing frequency of a subscription.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// ParseInterval accepts "month"/"monthly" and "year"/"yearly"/"annual".
func ParseInterval(s string) (Interval, error) {
	switch s {
	case "month", "monthly":
		return IntervalMonth, nil
	case "year", "yearly", "annual":
		return IntervalYear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
}

// Valid reports whether the interval is one of the known values.
func (i Interval) Valid() bool {
	return i == IntervalMonth || i == IntervalYear
}

// Tier is the entitlement granted to the account while it is on a plan.
// It is written to the account's role by the plan-change executor and
// consumed by authorization elsewhere.
type Tier string

const (
	TierUser Tier = "user"
	TierPro  Tier = "pro"
)

func (t Tier) Valid() bool {
	return t == TierUser || t == TierPro
}

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}

// Cents returns a Money value in the given currency.
func Cents(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Decimal returns the amount in major units (dollars for USD).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

// Times multiplies the amount by n.
func (m Money) Times(n int) Money {
	return Money{Amount: m.Amount * int64(n), Currency: m.Currency}
}
