package planchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/capacity"
	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// change is one plan change being applied inside an account transaction.
// Devices in snap are mutated in place as strategies suspend or wake them.
type change struct {
	e        *Executor
	tx       store.Tx
	account  uuid.UUID
	now      time.Time
	snap     *snapshot
	target   plan.Plan
	interval plan.Interval
	report   *Report
}

func (c *change) apply(ctx context.Context, strategy Strategy, ids []uuid.UUID) (*Result, error) {
	res := &Result{
		Status:         StatusCompleted,
		Classification: c.report.Classification,
		Strategy:       strategy,
	}
	if c.report.Classification.IsDowngrade() {
		res.Warnings = append(res.Warnings, WarningNoRefunds)
	}

	var err error
	switch strategy {
	case StrategyImmediate:
		err = c.immediate(ctx, res)
	case StrategyImmediateWithSelection:
		err = c.keepSelected(ctx, res, ids)
	case StrategyPayForExtra:
		err = c.payForExtra(ctx, res)
	case StrategySuspendExcess:
		err = c.suspendSelected(ctx, res, ids)
	case StrategyEndOfPeriod:
		err = c.schedule(ctx, res, ids)
	default:
		err = errors.Join(ErrUnknownStrategy, fmt.Errorf("strategy %q", strategy))
	}
	if err != nil {
		return nil, err
	}

	res.Message = c.message(res)
	return res, nil
}

func (c *change) accountant() *capacity.Accountant {
	return capacity.New(c.snap.sub, c.snap.plan, c.snap.devices,
		capacity.WithFallbackLimit(c.e.fallbackLimit),
		capacity.WithNow(c.now),
	)
}

// immediate switches plans now and carries paid add-on slots over to the new plan.
// Operational devices above the new limit, possible when devices were activated before subscribing,
// are suspended by removal rank; slots freed by a larger limit wake recently suspended devices.
func (c *change) immediate(ctx context.Context, res *Result) error {
	acc := c.accountant()
	operational := acc.OperationalCount()

	slots := 0
	if c.snap.sub != nil {
		slots = c.snap.sub.AdditionalDeviceSlots
	}
	if err := c.supersede(ctx, res, slots); err != nil {
		return err
	}

	newLimit := c.target.DeviceLimit + slots
	if excess := operational - newLimit; excess > 0 {
		victims := capacity.RankForRemoval(acc.Operational(), excess, c.now)
		if err := c.suspend(ctx, res, victims, device.ReasonPlanChange); err != nil {
			return err
		}
		operational -= excess
		res.Warnings = append(res.Warnings, excessWarning(c.report.Devices, c.target.Name))
	}

	return c.wakeFreed(ctx, res, acc.EffectiveLimit(), newLimit, operational)
}

// keepSelected switches plans now and suspends every operational device outside the keep-set.
func (c *change) keepSelected(ctx context.Context, res *Result, ids []uuid.UUID) error {
	keep, err := c.operationalSelection(ids)
	if err != nil {
		return err
	}
	if len(keep) > c.target.DeviceLimit {
		return errors.Join(ErrSelectionTooLarge,
			fmt.Errorf("selected %d devices, the %s plan allows %d", len(keep), c.target.Name, c.target.DeviceLimit))
	}

	if err := c.supersede(ctx, res, 0); err != nil {
		return err
	}

	var drop []*device.Device
	for _, d := range c.snap.devices {
		if d.IsOperational() && !keep[d.ID] {
			drop = append(drop, d)
		}
	}
	return c.suspend(ctx, res, drop, device.ReasonPlanChange)
}

// payForExtra switches plans now and buys add-on slots covering the whole excess.
func (c *change) payForExtra(ctx context.Context, res *Result) error {
	excess := c.report.Devices.Excess
	if err := c.supersede(ctx, res, excess); err != nil {
		return err
	}

	res.ExtraSlots = excess
	res.ExtraCost = c.e.analyzer.ExtraCost(excess)
	res.Warnings = append(res.Warnings, fmt.Sprintf("%d extra device slots add %s per month.",
		excess, c.e.analyzer.FormatMoney(res.ExtraCost.Decimal(), res.ExtraCost.Currency)))
	return nil
}

// suspendSelected switches plans now and suspends exactly the selected devices.
// The selection must be exactly the excess: fewer breaks the new limit, more leaves
// the remaining devices below what the target plan allows.
func (c *change) suspendSelected(ctx context.Context, res *Result, ids []uuid.UUID) error {
	selected, err := c.operationalSelection(ids)
	if err != nil {
		return err
	}
	excess := c.report.Devices.Excess
	switch {
	case len(selected) < excess:
		return errors.Join(ErrSelectionTooSmall,
			fmt.Errorf("selected %d devices, at least %d must be suspended", len(selected), excess))
	case len(selected) > excess:
		return errors.Join(ErrSelectionAboveExcess,
			fmt.Errorf("selected %d devices, the %s plan keeps %d active so only %d need suspending",
				len(selected), c.target.Name, c.target.DeviceLimit, excess))
	}

	if err := c.supersede(ctx, res, 0); err != nil {
		return err
	}

	var victims []*device.Device
	for _, d := range c.snap.devices {
		if selected[d.ID] {
			victims = append(victims, d)
		}
	}
	return c.suspend(ctx, res, victims, device.ReasonPlanChangeSuspension)
}

// schedule records an intent to apply the change at the end of the current billing period.
// Neither the subscription nor any device is touched. An earlier pending intent is canceled.
func (c *change) schedule(ctx context.Context, res *Result, keepIDs []uuid.UUID) error {
	if c.snap.sub == nil {
		return subscription.ErrNoActiveSubscription
	}

	follow := StrategyImmediate
	if len(keepIDs) > 0 {
		keep, err := c.operationalSelection(keepIDs)
		if err != nil {
			return err
		}
		if len(keep) > c.target.DeviceLimit {
			return errors.Join(ErrSelectionTooLarge,
				fmt.Errorf("selected %d devices, the %s plan allows %d", len(keep), c.target.Name, c.target.DeviceLimit))
		}
		follow = StrategyImmediateWithSelection
	}

	prior, err := c.tx.PendingScheduledChange(ctx, c.account)
	switch {
	case errors.Is(err, subscription.ErrScheduledChangeNotFound):
	case err != nil:
		return err
	default:
		prior.MarkCanceled(c.now, "superseded by a newer scheduled change")
		if err := c.tx.SaveScheduledChange(ctx, prior); err != nil {
			return err
		}
	}

	sc := &subscription.ScheduledChange{
		ID:             uuid.New(),
		AccountID:      c.account,
		TargetPlanID:   c.target.ID,
		TargetInterval: c.interval,
		Strategy:       string(follow),
		DeviceIDs:      keepIDs,
		EffectiveAt:    c.snap.sub.CurrentPeriodEnd,
		Status:         subscription.ScheduledPending,
		CreatedAt:      c.now,
	}
	if err := c.tx.SaveScheduledChange(ctx, sc); err != nil {
		return err
	}

	res.Status = StatusScheduled
	res.Subscription = c.snap.sub
	res.ScheduledChange = sc
	if c.report.Devices.Excess > 0 {
		res.Warnings = append(res.Warnings, excessWarning(c.report.Devices, c.target.Name))
	}
	return nil
}

// supersede writes the target plan onto the subscription, creating one for new accounts,
// cancels any other live subscription and assigns the plan's entitlement tier.
func (c *change) supersede(ctx context.Context, res *Result, slots int) error {
	var sub *subscription.Subscription
	if c.snap.sub == nil {
		sub = subscription.New(c.account, c.target, c.interval, c.now)
	} else {
		sub = c.snap.sub.Clone()
		sub.ChangePlan(c.target, c.interval, c.now)
	}
	sub.AdditionalDeviceSlots = slots

	// Cancel first so at most one active subscription exists at every write.
	if _, err := c.tx.CancelOtherSubscriptions(ctx, c.account, sub.ID, c.now); err != nil {
		return err
	}
	if err := c.tx.SaveSubscription(ctx, sub); err != nil {
		return err
	}
	if err := c.tx.SetAccountRole(ctx, c.account, c.target.Tier); err != nil {
		return err
	}

	res.Subscription = sub
	return nil
}

func (c *change) suspend(ctx context.Context, res *Result, devices []*device.Device, reason string) error {
	for _, d := range devices {
		if d.State == device.StateSuspended {
			continue
		}
		if err := d.Suspend(ctx, reason, c.now); err != nil {
			return err
		}
		if err := c.tx.SaveDevice(ctx, d); err != nil {
			return err
		}
		res.SuspendedCount++
	}
	return nil
}

// wakeFreed wakes devices parked by earlier plan changes or capacity checks, most recently
// suspended first, up to the slots gained by the new limit. Devices suspended by the user stay put.
func (c *change) wakeFreed(ctx context.Context, res *Result, oldLimit, newLimit, operational int) error {
	freed := min(max(newLimit-oldLimit, 0), max(newLimit-operational, 0))
	if freed == 0 {
		return nil
	}

	var parked []*device.Device
	for _, d := range c.snap.devices {
		if d.State == device.StateSuspended && d.SuspensionReason != device.ReasonUser {
			parked = append(parked, d)
		}
	}

	for _, d := range capacity.MostRecentlySuspended(parked, freed) {
		if err := d.Wake(ctx, c.now); err != nil {
			return err
		}
		if err := c.tx.SaveDevice(ctx, d); err != nil {
			return err
		}
		res.WokenCount++
	}
	return nil
}

// operationalSelection resolves ids against the account's devices.
// Every id must be unique, owned by the account and currently operational.
func (c *change) operationalSelection(ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	selected := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if selected[id] {
			return nil, errors.Join(ErrDuplicateDevice, fmt.Errorf("device %s", id))
		}
		d, err := store.FindDevice(c.snap.devices, id)
		if err != nil {
			return nil, errors.Join(ErrDeviceNotOwned, fmt.Errorf("device %s", id))
		}
		if !d.IsOperational() {
			return nil, errors.Join(ErrDeviceNotOperational, fmt.Errorf("device %s is %s", id, d.State))
		}
		selected[id] = true
	}
	return selected, nil
}

func (c *change) message(res *Result) string {
	if res.Status == StatusScheduled {
		return fmt.Sprintf("Change to the %s plan billed per %s is scheduled for %s.",
			c.target.Name, c.interval, res.ScheduledChange.EffectiveAt.Format(time.DateOnly))
	}

	msg := fmt.Sprintf("Switched to the %s plan billed per %s.", c.target.Name, c.interval)
	if res.SuspendedCount > 0 {
		msg += fmt.Sprintf(" %d devices suspended.", res.SuspendedCount)
	}
	if res.WokenCount > 0 {
		msg += fmt.Sprintf(" %d devices reactivated.", res.WokenCount)
	}
	if res.ExtraSlots > 0 {
		msg += fmt.Sprintf(" %d extra device slots added.", res.ExtraSlots)
	}
	return msg
}
