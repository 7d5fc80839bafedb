package subscription

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/plan"
)

// ScheduledChange is a persisted intent to apply a plan change at a future time,
// typically the end of the current billing period. A time-triggered runner applies it.
type ScheduledChange struct {
	ID             uuid.UUID             `json:"id"`
	AccountID      uuid.UUID             `json:"account_id"`
	TargetPlanID   string                `json:"target_plan_id"`
	TargetInterval plan.Interval         `json:"target_interval"`
	Strategy       string                `json:"strategy"`
	DeviceIDs      []uuid.UUID           `json:"device_ids,omitempty"` // devices to keep, optional
	EffectiveAt    time.Time             `json:"effective_at"`
	Status         ScheduledChangeStatus `json:"status"`
	Note           string                `json:"note,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	ResolvedAt     *time.Time            `json:"resolved_at,omitempty"` // set when applied or canceled
}

func (c *ScheduledChange) IsPending() bool {
	return c.Status == ScheduledPending
}

// IsDue reports whether a pending change should be applied at now.
func (c *ScheduledChange) IsDue(now time.Time) bool {
	return c.IsPending() && !now.Before(c.EffectiveAt)
}

// MarkApplied moves the change to its terminal applied state.
func (c *ScheduledChange) MarkApplied(now time.Time, note string) {
	now = now.UTC()
	c.Status = ScheduledApplied
	c.Note = note
	c.ResolvedAt = &now
}

// MarkCanceled moves the change to its terminal canceled state.
func (c *ScheduledChange) MarkCanceled(now time.Time, note string) {
	now = now.UTC()
	c.Status = ScheduledCanceled
	c.Note = note
	c.ResolvedAt = &now
}

// Clone returns a deep copy.
func (c *ScheduledChange) Clone() *ScheduledChange {
	cp := *c
	cp.DeviceIDs = slices.Clone(c.DeviceIDs)
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
