package planchange_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/planchange"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// fiveDevices seeds one device offline for over a week and four recently active ones,
// returned most recently active first.
func fiveDevices(f *fixture) (offline *device.Device, recent []*device.Device) {
	offline = f.addDevice("attic", 30*day, dur(8*day))
	for i, seen := range []int{1, 2, 3, 4} {
		recent = append(recent, f.addDevice("room", 20*day-hourN(i), dur(hourN(seen))))
	}
	return offline, recent
}

func TestExecute_ImmediateWithSelection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.subscribe(standardPlan, plan.IntervalMonth, 0)
	offline, recent := fiveDevices(f)

	res, err := f.exec.Execute(f.ctx, planchange.Request{
		AccountID: f.account,
		PlanID:    basicPlan.ID,
		Interval:  plan.IntervalMonth,
		Strategy:  planchange.StrategyImmediateWithSelection,
		DeviceIDs: []uuid.UUID{recent[0].ID, recent[1].ID},
	})
	require.NoError(t, err)

	assert.Equal(t, planchange.StatusCompleted, res.Status)
	assert.Equal(t, planchange.ClassDowngradeWarning, res.Classification)
	assert.Equal(t, 3, res.SuspendedCount)
	assert.Contains(t, res.Warnings, planchange.WarningNoRefunds)

	devices := f.devices()
	assert.Equal(t, device.StateActive, devices[recent[0].ID].State)
	assert.Equal(t, device.StateActive, devices[recent[1].ID].State)
	for _, id := range []uuid.UUID{offline.ID, recent[2].ID, recent[3].ID} {
		assert.Equal(t, device.StateSuspended, devices[id].State)
		assert.Equal(t, device.ReasonPlanChange, devices[id].SuspensionReason)
	}

	sub := f.subscription()
	assert.Equal(t, basicPlan.ID, sub.PlanID)
	assert.Equal(t, 0, sub.AdditionalDeviceSlots)
	assert.Equal(t, plan.TierUser, f.role())
	f.assertWithinCapacity(planLimit)
	assert.Equal(t, []string{"immediate_with_selection:completed"}, f.recorder.calls)
}

func TestExecute_PayForExtra(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.subscribe(standardPlan, plan.IntervalMonth, 1)
	for range 5 {
		f.addDevice("d", day, dur(hour))
	}

	res, err := f.exec.Execute(f.ctx, planchange.Request{
		AccountID: f.account,
		PlanID:    basicPlan.ID,
		Interval:  plan.IntervalMonth,
		Strategy:  planchange.StrategyPayForExtra,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.ExtraSlots)
	assert.Equal(t, plan.Cents(1500, "USD"), res.ExtraCost)
	assert.Equal(t, 0, res.SuspendedCount)
	assert.Equal(t, 3, f.subscription().AdditionalDeviceSlots)
	assert.Equal(t, 5, f.countState(device.StateActive))
	f.assertWithinCapacity(planLimit)
}

func TestExecute_SuspendExcess(t *testing.T) {
	t.Parallel()

	t.Run("suspends exactly the selection", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(standardPlan, plan.IntervalMonth, 2)
		offline, recent := fiveDevices(f)

		res, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account,
			PlanID:    basicPlan.ID,
			Interval:  plan.IntervalMonth,
			Strategy:  planchange.StrategySuspendExcess,
			DeviceIDs: []uuid.UUID{offline.ID, recent[3].ID, recent[2].ID},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, res.SuspendedCount)

		devices := f.devices()
		assert.Equal(t, device.ReasonPlanChangeSuspension, devices[offline.ID].SuspensionReason)
		assert.Equal(t, device.StateActive, devices[recent[0].ID].State)
		assert.Equal(t, 0, f.subscription().AdditionalDeviceSlots)
		f.assertWithinCapacity(planLimit)
	})

	t.Run("selection below excess is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(standardPlan, plan.IntervalMonth, 0)
		offline, _ := fiveDevices(f)

		_, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account,
			PlanID:    basicPlan.ID,
			Interval:  plan.IntervalMonth,
			Strategy:  planchange.StrategySuspendExcess,
			DeviceIDs: []uuid.UUID{offline.ID},
		})
		require.ErrorIs(t, err, planchange.ErrSelectionTooSmall)
		assert.True(t, planchange.IsValidationError(err))
		assert.Equal(t, standardPlan.ID, f.subscription().PlanID)
		assert.Equal(t, 5, f.countState(device.StateActive))
	})

	t.Run("selection above excess is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(standardPlan, plan.IntervalMonth, 0)
		offline, recent := fiveDevices(f)

		all := []uuid.UUID{offline.ID}
		for _, d := range recent {
			all = append(all, d.ID)
		}
		_, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account,
			PlanID:    basicPlan.ID,
			Interval:  plan.IntervalMonth,
			Strategy:  planchange.StrategySuspendExcess,
			DeviceIDs: all,
		})
		require.ErrorIs(t, err, planchange.ErrSelectionAboveExcess)
		assert.True(t, planchange.IsValidationError(err))
		assert.Equal(t, standardPlan.ID, f.subscription().PlanID)
		assert.Equal(t, 5, f.countState(device.StateActive))
	})
}

func TestExecute_SelectionValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ids     func(f *fixture, recent []*device.Device) []uuid.UUID
		wantErr error
	}{
		{
			name:    "empty selection",
			ids:     func(*fixture, []*device.Device) []uuid.UUID { return nil },
			wantErr: planchange.ErrSelectionRequired,
		},
		{
			name: "foreign device",
			ids: func(_ *fixture, recent []*device.Device) []uuid.UUID {
				return []uuid.UUID{recent[0].ID, uuid.New()}
			},
			wantErr: planchange.ErrDeviceNotOwned,
		},
		{
			name: "duplicate device",
			ids: func(_ *fixture, recent []*device.Device) []uuid.UUID {
				return []uuid.UUID{recent[0].ID, recent[0].ID}
			},
			wantErr: planchange.ErrDuplicateDevice,
		},
		{
			name: "too many devices",
			ids: func(_ *fixture, recent []*device.Device) []uuid.UUID {
				return []uuid.UUID{recent[0].ID, recent[1].ID, recent[2].ID}
			},
			wantErr: planchange.ErrSelectionTooLarge,
		},
		{
			name: "suspended device",
			ids: func(f *fixture, recent []*device.Device) []uuid.UUID {
				f.suspendDevice(recent[3], device.ReasonUser, start)
				return []uuid.UUID{recent[3].ID}
			},
			wantErr: planchange.ErrDeviceNotOperational,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.subscribe(standardPlan, plan.IntervalMonth, 0)
			_, recent := fiveDevices(f)
			ids := tt.ids(f, recent)
			before := f.devices()

			_, err := f.exec.Execute(f.ctx, planchange.Request{
				AccountID: f.account,
				PlanID:    basicPlan.ID,
				Interval:  plan.IntervalMonth,
				Strategy:  planchange.StrategyImmediateWithSelection,
				DeviceIDs: ids,
			})
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, planchange.IsValidationError(err))

			assert.Equal(t, standardPlan.ID, f.subscription().PlanID)
			after := f.devices()
			for id, d := range after {
				if b, ok := before[id]; ok {
					assert.Equal(t, b.State, d.State)
				}
			}
		})
	}
}

func TestExecute_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("already on plan", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(basicPlan, plan.IntervalMonth, 0)

		_, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account, PlanID: basicPlan.ID, Interval: plan.IntervalMonth,
			Strategy: planchange.StrategyImmediate,
		})
		require.ErrorIs(t, err, planchange.ErrAlreadyOnPlan)
		assert.True(t, planchange.IsValidationError(err))
		assert.Equal(t, []string{"immediate:rejected"}, f.recorder.calls)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account, PlanID: basicPlan.ID, Interval: plan.IntervalMonth,
			Strategy: "teleport",
		})
		require.ErrorIs(t, err, planchange.ErrUnknownStrategy)
	})

	t.Run("strategy not offered", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(basicPlan, plan.IntervalMonth, 0)

		_, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account, PlanID: proPlan.ID, Interval: plan.IntervalMonth,
			Strategy: planchange.StrategyPayForExtra,
		})
		require.ErrorIs(t, err, planchange.ErrStrategyNotOffered)
		assert.Equal(t, basicPlan.ID, f.subscription().PlanID)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account, PlanID: "platinum", Interval: plan.IntervalMonth,
			Strategy: planchange.StrategyImmediate,
		})
		require.ErrorIs(t, err, plan.ErrPlanNotFound)
		assert.True(t, planchange.IsValidationError(err))
	})

	t.Run("invalid interval", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account, PlanID: basicPlan.ID, Interval: "weekly",
			Strategy: planchange.StrategyImmediate,
		})
		require.ErrorIs(t, err, plan.ErrInvalidInterval)
	})
}

func TestExecute_NewSubscription(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for i := range 3 {
		f.addDevice("d", hourN(10-i), dur(hour))
	}

	res, err := f.exec.Execute(f.ctx, planchange.Request{
		AccountID: f.account, PlanID: basicPlan.ID, Interval: plan.IntervalYear,
		Strategy: planchange.StrategyImmediate,
	})
	require.NoError(t, err)

	assert.Equal(t, planchange.ClassNewSubscription, res.Classification)
	require.NotNil(t, res.Subscription)
	assert.Equal(t, subscription.StatusActive, res.Subscription.Status)
	assert.Equal(t, start.AddDate(1, 0, 0), res.Subscription.CurrentPeriodEnd)
	assert.Equal(t, 1, res.SuspendedCount)
	assert.Equal(t, 2, f.countState(device.StateActive))
	assert.Equal(t, plan.TierUser, f.role())
	f.assertWithinCapacity(planLimit)
}

func TestExecute_UpgradeWakesParkedDevices(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.subscribe(basicPlan, plan.IntervalMonth, 1)
	f.addDevice("a", day, dur(hour))
	f.addDevice("b", day, dur(hour))
	f.addDevice("c", day, dur(hour))
	older := f.addDevice("parked-old", day, dur(hour))
	newer := f.addDevice("parked-new", day, dur(hour))
	mine := f.addDevice("user-off", day, dur(hour))
	f.suspendDevice(older, device.ReasonPlanChange, start.Add(-3*hour))
	f.suspendDevice(newer, device.ReasonPlanChangeSuspension, start.Add(-2*hour))
	f.suspendDevice(mine, device.ReasonUser, start.Add(-hour))

	res, err := f.exec.Execute(f.ctx, planchange.Request{
		AccountID: f.account, PlanID: standardPlan.ID, Interval: plan.IntervalMonth,
		Strategy: planchange.StrategyImmediate,
	})
	require.NoError(t, err)

	assert.Equal(t, planchange.ClassUpgrade, res.Classification)
	assert.Equal(t, 1, res.Subscription.AdditionalDeviceSlots)
	// old effective limit 3, new limit 4 + 1 slot: two slots freed
	assert.Equal(t, 2, res.WokenCount)

	devices := f.devices()
	assert.Equal(t, device.StateActive, devices[newer.ID].State)
	assert.Equal(t, device.StateActive, devices[older.ID].State)
	assert.Equal(t, device.StateSuspended, devices[mine.ID].State)
	assert.Equal(t, plan.TierPro, f.role())
	f.assertWithinCapacity(planLimit)
}

func TestExecute_ImmediateCarriesSlots(t *testing.T) {
	t.Parallel()

	t.Run("upgrade", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(basicPlan, plan.IntervalMonth, 3)
		f.addDevice("a", day, dur(hour))
		f.addDevice("b", day, dur(hour))

		res, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account, PlanID: standardPlan.ID, Interval: plan.IntervalMonth,
			Strategy: planchange.StrategyImmediate,
		})
		require.NoError(t, err)
		assert.Equal(t, planchange.ClassUpgrade, res.Classification)
		assert.Equal(t, 3, res.Subscription.AdditionalDeviceSlots)
		assert.Equal(t, 7, res.Subscription.EffectiveLimit(standardPlan))
		assert.Equal(t, 3, f.subscription().AdditionalDeviceSlots)
	})

	t.Run("upgrade with every slot in use", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(basicPlan, plan.IntervalMonth, 4)
		for range 6 {
			f.addDevice("d", day, dur(hour))
		}

		res, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account, PlanID: standardPlan.ID, Interval: plan.IntervalMonth,
			Strategy: planchange.StrategyImmediate,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, res.Subscription.AdditionalDeviceSlots)
		assert.Equal(t, 0, res.SuspendedCount)
		f.assertWithinCapacity(planLimit)
	})

	t.Run("interval switch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.subscribe(basicPlan, plan.IntervalMonth, 2)
		f.addDevice("a", day, dur(hour))

		res, err := f.exec.Execute(f.ctx, planchange.Request{
			AccountID: f.account, PlanID: basicPlan.ID, Interval: plan.IntervalYear,
			Strategy: planchange.StrategyImmediate,
		})
		require.NoError(t, err)
		assert.Equal(t, planchange.ClassDowngradeSafe, res.Classification)
		assert.Equal(t, plan.IntervalYear, res.Subscription.Interval)
		assert.Equal(t, 2, f.subscription().AdditionalDeviceSlots)
	})
}

func TestExecute_EndOfPeriod(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sub := f.subscribe(standardPlan, plan.IntervalMonth, 0)
	_, recent := fiveDevices(f)

	first, err := f.exec.Execute(f.ctx, planchange.Request{
		AccountID: f.account, PlanID: basicPlan.ID, Interval: plan.IntervalMonth,
		Strategy: planchange.StrategyEndOfPeriod,
	})
	require.NoError(t, err)
	assert.Equal(t, planchange.StatusScheduled, first.Status)
	require.NotNil(t, first.ScheduledChange)
	assert.Equal(t, sub.CurrentPeriodEnd, first.ScheduledChange.EffectiveAt)
	assert.Equal(t, string(planchange.StrategyImmediate), first.ScheduledChange.Strategy)

	// nothing applied yet
	assert.Equal(t, standardPlan.ID, f.subscription().PlanID)
	assert.Equal(t, 5, f.countState(device.StateActive))

	second, err := f.exec.Execute(f.ctx, planchange.Request{
		AccountID: f.account, PlanID: basicPlan.ID, Interval: plan.IntervalMonth,
		Strategy:  planchange.StrategyEndOfPeriod,
		DeviceIDs: []uuid.UUID{recent[0].ID, recent[1].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, string(planchange.StrategyImmediateWithSelection), second.ScheduledChange.Strategy)

	require.NoError(t, f.store.View(f.ctx, f.account, func(ctx context.Context, tx store.Tx) error {
		pending, err := tx.PendingScheduledChange(ctx, f.account)
		require.NoError(t, err)
		assert.Equal(t, second.ScheduledChange.ID, pending.ID)
		return nil
	}))

	canceled, err := f.exec.CancelScheduledChange(f.ctx, f.account)
	require.NoError(t, err)
	assert.Equal(t, subscription.ScheduledCanceled, canceled.Status)

	_, err = f.exec.CancelScheduledChange(f.ctx, f.account)
	require.ErrorIs(t, err, subscription.ErrScheduledChangeNotFound)
}

func TestExecute_EndOfPeriodNotOfferedForNewAccounts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.exec.Execute(f.ctx, planchange.Request{
		AccountID: f.account, PlanID: basicPlan.ID, Interval: plan.IntervalMonth,
		Strategy: planchange.StrategyEndOfPeriod,
	})
	require.ErrorIs(t, err, planchange.ErrStrategyNotOffered)
}

func TestExecute_TransactionFailureLeavesNoPartialState(t *testing.T) {
	t.Parallel()
	failing := false
	f := newFixture(t, memoryCommitHook(&failing))
	f.subscribe(standardPlan, plan.IntervalMonth, 0)
	_, recent := fiveDevices(f)
	failing = true

	_, err := f.exec.Execute(f.ctx, planchange.Request{
		AccountID: f.account, PlanID: basicPlan.ID, Interval: plan.IntervalMonth,
		Strategy:  planchange.StrategyImmediateWithSelection,
		DeviceIDs: []uuid.UUID{recent[0].ID},
	})
	require.ErrorIs(t, err, store.ErrTxFailed)
	assert.False(t, planchange.IsValidationError(err))
	assert.False(t, planchange.IsConflictError(err))

	failing = false
	assert.Equal(t, standardPlan.ID, f.subscription().PlanID)
	assert.Equal(t, 5, f.countState(device.StateActive))
	assert.Equal(t, []string{"immediate_with_selection:failed"}, f.recorder.calls)
}

func TestPreview(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.subscribe(standardPlan, plan.IntervalMonth, 0)
	fiveDevices(f)

	r, err := f.exec.Preview(f.ctx, f.account, basicPlan.ID, plan.IntervalMonth)
	require.NoError(t, err)
	assert.Equal(t, planchange.ClassDowngradeWarning, r.Classification)
	assert.Equal(t, 3, r.Devices.Excess)

	// preview reflects live state on every call
	f.addDevice("late", hour, nil)
	r, err = f.exec.Preview(f.ctx, f.account, basicPlan.ID, plan.IntervalMonth)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Devices.Excess)

	_, err = f.exec.Preview(f.ctx, f.account, "nope", plan.IntervalMonth)
	require.ErrorIs(t, err, plan.ErrPlanNotFound)
}

func TestInvariantAfterEachStrategy(t *testing.T) {
	t.Parallel()

	for _, strategy := range []planchange.Strategy{
		planchange.StrategyImmediateWithSelection,
		planchange.StrategyPayForExtra,
		planchange.StrategySuspendExcess,
	} {
		t.Run(string(strategy), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.subscribe(proPlan, plan.IntervalMonth, 0)
			var ids []uuid.UUID
			for i := range 7 {
				d := f.addDevice("d", hourN(20-i), dur(hourN(i+1)))
				ids = append(ids, d.ID)
			}

			var sel []uuid.UUID
			switch strategy {
			case planchange.StrategyImmediateWithSelection:
				sel = ids[:4]
			case planchange.StrategySuspendExcess:
				sel = ids[:3]
			}
			_, err := f.exec.Execute(f.ctx, planchange.Request{
				AccountID: f.account, PlanID: homePlan.ID, Interval: plan.IntervalMonth,
				Strategy: strategy, DeviceIDs: sel,
			})
			require.NoError(t, err)
			f.assertWithinCapacity(planLimit)
		})
	}
}
