package planchange

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/devicecap/pkg/plan"
)

// Report is the impact of moving an account to a target plan and interval.
// It is recomputed on every call and never stored.
type Report struct {
	AccountID      uuid.UUID      `json:"account_id"`
	Classification Classification `json:"classification"`
	Current        *PlanSnapshot  `json:"current,omitempty"`
	Target         PlanSnapshot   `json:"target"`
	Devices        DeviceImpact   `json:"devices"`
	Billing        BillingImpact  `json:"billing"`
	Warnings       []string       `json:"warnings,omitempty"`
	Strategies     []Strategy     `json:"strategies"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Offers reports whether s is among the strategies available for this report's classification.
func (r *Report) Offers(s Strategy) bool {
	return slices.Contains(r.Strategies, s)
}

// Recommended returns the first offered strategy, or "" when nothing can be executed.
func (r *Report) Recommended() Strategy {
	if len(r.Strategies) == 0 {
		return ""
	}
	return r.Strategies[0]
}

// PlanSnapshot freezes the plan facts relevant to the change.
type PlanSnapshot struct {
	PlanID          string        `json:"plan_id"`
	Name            string        `json:"name"`
	Tier            plan.Tier     `json:"tier"`
	Interval        plan.Interval `json:"interval"`
	Price           plan.Money    `json:"price"`
	DeviceLimit     int           `json:"device_limit"`
	AdditionalSlots int           `json:"additional_slots"`
	EffectiveLimit  int           `json:"effective_limit"`
}

// DeviceImpact summarizes how the target limit relates to current operational devices.
type DeviceImpact struct {
	OperationalCount int         `json:"operational_count"`
	CurrentLimit     int         `json:"current_limit"`
	TargetLimit      int         `json:"target_limit"`
	Excess           int         `json:"excess"`
	Candidates       []Candidate `json:"candidates,omitempty"` // suggested devices to remove, in removal order
}

// Candidate is a device suggested for removal.
type Candidate struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	DeviceTypeID   string     `json:"device_type_id"`
	LastConnection *time.Time `json:"last_connection,omitempty"`
	Recency        string     `json:"recency"`
	Offline        bool       `json:"offline"`
}

// BillingImpact compares monthly-equivalent costs in major currency units.
// Refunds are never computed.
type BillingImpact struct {
	Currency           string          `json:"currency"`
	CurrentMonthly     decimal.Decimal `json:"current_monthly"`
	TargetMonthly      decimal.Decimal `json:"target_monthly"`
	Difference         decimal.Decimal `json:"difference"`
	ExtraDevicePrice   decimal.Decimal `json:"extra_device_price"` // flat monthly price per add-on slot
	ExtraDevicesCost   decimal.Decimal `json:"extra_devices_cost"` // monthly cost of keeping the excess via pay_for_extra
	ExtraDevicesQuote  string          `json:"extra_devices_quote,omitempty"`
	CurrentMonthlyText string          `json:"current_monthly_text"`
	TargetMonthlyText  string          `json:"target_monthly_text"`
}
