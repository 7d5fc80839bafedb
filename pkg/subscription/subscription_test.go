package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

var (
	basic = plan.Plan{ID: "basic", DeviceLimit: 2, Tier: plan.TierUser}
	pro   = plan.Plan{ID: "pro", DeviceLimit: 4, Tier: plan.TierPro}
	now   = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
)

func TestNew(t *testing.T) {
	t.Parallel()

	accountID := uuid.New()
	sub := subscription.New(accountID, basic, plan.IntervalMonth, now)

	assert.Equal(t, accountID, sub.AccountID)
	assert.Equal(t, "basic", sub.PlanID)
	assert.True(t, sub.IsActive())
	assert.Equal(t, now, sub.CurrentPeriodStart)
	assert.Equal(t, time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC), sub.CurrentPeriodEnd)
}

func TestEffectiveLimit(t *testing.T) {
	t.Parallel()

	sub := subscription.New(uuid.New(), basic, plan.IntervalMonth, now)
	assert.Equal(t, 2, sub.EffectiveLimit(basic))

	sub.AdditionalDeviceSlots = 3
	assert.Equal(t, 5, sub.EffectiveLimit(basic))
}

func TestChangePlan(t *testing.T) {
	t.Parallel()

	t.Run("same interval keeps period", func(t *testing.T) {
		t.Parallel()

		sub := subscription.New(uuid.New(), basic, plan.IntervalMonth, now)
		end := sub.CurrentPeriodEnd

		sub.ChangePlan(pro, plan.IntervalMonth, now.Add(48*time.Hour))
		assert.Equal(t, "pro", sub.PlanID)
		assert.Equal(t, end, sub.CurrentPeriodEnd)
	})

	t.Run("interval switch restarts period", func(t *testing.T) {
		t.Parallel()

		sub := subscription.New(uuid.New(), basic, plan.IntervalMonth, now)
		later := now.Add(48 * time.Hour)

		sub.ChangePlan(basic, plan.IntervalYear, later)
		assert.Equal(t, plan.IntervalYear, sub.Interval)
		assert.Equal(t, later, sub.CurrentPeriodStart)
		assert.Equal(t, later.AddDate(1, 0, 0), sub.CurrentPeriodEnd)
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()

	sub := subscription.New(uuid.New(), basic, plan.IntervalMonth, now)
	sub.Cancel(now)

	assert.True(t, sub.IsCanceled())
	assert.False(t, sub.IsActive())
	assert.NotNil(t, sub.CanceledAt)
}

func TestScheduledChange(t *testing.T) {
	t.Parallel()

	change := &subscription.ScheduledChange{
		Status:      subscription.ScheduledPending,
		EffectiveAt: now,
	}

	assert.False(t, change.IsDue(now.Add(-time.Second)))
	assert.True(t, change.IsDue(now))

	change.MarkApplied(now, "")
	assert.False(t, change.IsPending())
	assert.False(t, change.IsDue(now.Add(time.Hour)))
	assert.NotNil(t, change.ResolvedAt)
}
