package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/plan"
)

// Subscription is an account's relationship to a plan.
// An account has at most one subscription with status active at a time;
// canceled subscriptions are kept for history and never deleted.
type Subscription struct {
	ID                    uuid.UUID     `json:"id"`
	AccountID             uuid.UUID     `json:"account_id"`
	PlanID                string        `json:"plan_id"`
	Interval              plan.Interval `json:"interval"`
	Status                Status        `json:"status"`
	AdditionalDeviceSlots int           `json:"additional_device_slots"` // paid add-on capacity beyond the plan
	CurrentPeriodStart    time.Time     `json:"current_period_start"`
	CurrentPeriodEnd      time.Time     `json:"current_period_end"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
	CanceledAt            *time.Time    `json:"canceled_at,omitempty"`
}

// New starts an active subscription whose first billing period begins at now.
func New(accountID uuid.UUID, p plan.Plan, interval plan.Interval, now time.Time) *Subscription {
	now = now.UTC()
	return &Subscription{
		ID:                 uuid.New(),
		AccountID:          accountID,
		PlanID:             p.ID,
		Interval:           interval,
		Status:             StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   PeriodEnd(now, interval),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// PeriodEnd returns the end of a billing period starting at start.
func PeriodEnd(start time.Time, interval plan.Interval) time.Time {
	if interval == plan.IntervalYear {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// EffectiveLimit is the plan's included device count plus paid add-on slots.
func (s *Subscription) EffectiveLimit(p plan.Plan) int {
	return p.DeviceLimit + s.AdditionalDeviceSlots
}

// ChangePlan supersedes the plan and interval in place.
// Switching interval restarts the billing period at now; otherwise the period is left alone
// because the payment collaborator owns period boundaries.
func (s *Subscription) ChangePlan(p plan.Plan, interval plan.Interval, now time.Time) {
	now = now.UTC()
	if s.Interval != interval {
		s.CurrentPeriodStart = now
		s.CurrentPeriodEnd = PeriodEnd(now, interval)
	}
	s.PlanID = p.ID
	s.Interval = interval
	s.UpdatedAt = now
}

// Cancel marks the subscription canceled at now.
func (s *Subscription) Cancel(now time.Time) {
	now = now.UTC()
	s.Status = StatusCanceled
	s.CanceledAt = &now
	s.UpdatedAt = now
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	c := *s
	if s.CanceledAt != nil {
		t := *s.CanceledAt
		c.CanceledAt = &t
	}
	return &c
}
