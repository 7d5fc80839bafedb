package plan

import "github.com/shopspring/decimal"

var monthsPerYear = decimal.NewFromInt(12)

// Plan is immutable reference data: identity, included device capacity and list prices.
type Plan struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description"`
	DeviceLimit  int    `json:"device_limit" yaml:"device_limit"` // devices included in the plan price
	MonthlyPrice Money  `json:"monthly_price" yaml:"monthly_price"`
	YearlyPrice  Money  `json:"yearly_price" yaml:"yearly_price"`
	Tier         Tier   `json:"tier" yaml:"tier"`
	Public       bool   `json:"public" yaml:"public"` // available for self-service selection
}

// Price returns the list price charged per billing interval.
func (p Plan) Price(interval Interval) Money {
	if interval == IntervalYear {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// MonthlyEquivalent normalizes the interval price to one month, in major units.
func (p Plan) MonthlyEquivalent(interval Interval) decimal.Decimal {
	if interval == IntervalYear {
		return p.YearlyPrice.Decimal().Div(monthsPerYear).Round(2)
	}
	return p.MonthlyPrice.Decimal()
}
