package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// SlotResult is the subscription capacity after a slot change.
type SlotResult struct {
	AdditionalSlots  int `json:"additional_device_slots"`
	EffectiveLimit   int `json:"effective_limit"`
	OperationalCount int `json:"operational_count"`
}

// AddDeviceSlot buys one add-on device slot. It needs an active subscription.
func (s *Service) AddDeviceSlot(ctx context.Context, accountID uuid.UUID) (*SlotResult, error) {
	var res *SlotResult
	err := s.run(ctx, accountID, ActionAddSlot, func(ctx context.Context, a *account) error {
		if a.sub == nil {
			return subscription.ErrNoActiveSubscription
		}
		if !a.sub.IsActive() {
			return errors.Join(subscription.ErrNoActiveSubscription, fmt.Errorf("subscription is %s", a.sub.Status))
		}
		a.sub.AdditionalDeviceSlots++
		a.sub.UpdatedAt = a.now
		if err := a.tx.SaveSubscription(ctx, a.sub); err != nil {
			return err
		}
		res = a.slots()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RemoveDeviceSlot drops one add-on slot. It is rejected when the operational
// devices would no longer fit, so removing a slot never suspends anything.
func (s *Service) RemoveDeviceSlot(ctx context.Context, accountID uuid.UUID) (*SlotResult, error) {
	var res *SlotResult
	err := s.run(ctx, accountID, ActionRemoveSlot, func(ctx context.Context, a *account) error {
		if a.sub == nil {
			return subscription.ErrNoActiveSubscription
		}
		if a.sub.AdditionalDeviceSlots == 0 {
			return ErrNoSlotToRemove
		}
		newLimit := a.sub.EffectiveLimit(*a.plan) - 1
		if op := a.accountant().OperationalCount(); op > newLimit {
			return errors.Join(ErrSlotInUse,
				fmt.Errorf("%d operational devices, limit would be %d", op, newLimit))
		}
		a.sub.AdditionalDeviceSlots--
		a.sub.UpdatedAt = a.now
		if err := a.tx.SaveSubscription(ctx, a.sub); err != nil {
			return err
		}
		res = a.slots()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelSubscription cancels the current subscription, keeping it for history.
// The account drops to the user tier and any pending scheduled change is canceled.
// Devices are left as they are.
func (s *Service) CancelSubscription(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	var canceled *subscription.Subscription
	err := s.run(ctx, accountID, ActionCancel, func(ctx context.Context, a *account) error {
		if a.sub == nil {
			return subscription.ErrSubscriptionNotFound
		}
		a.sub.Cancel(a.now)
		if err := a.tx.SaveSubscription(ctx, a.sub); err != nil {
			return err
		}
		if err := a.tx.SetAccountRole(ctx, accountID, plan.TierUser); err != nil {
			return err
		}

		pending, err := a.tx.PendingScheduledChange(ctx, accountID)
		switch {
		case errors.Is(err, subscription.ErrScheduledChangeNotFound):
		case err != nil:
			return err
		default:
			pending.MarkCanceled(a.now, "subscription canceled")
			if err := a.tx.SaveScheduledChange(ctx, pending); err != nil {
				return err
			}
		}

		canceled = a.sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

// RecordPaymentResult moves the subscription between active and past_due.
// A result matching the current status changes nothing.
func (s *Service) RecordPaymentResult(ctx context.Context, accountID uuid.UUID, paid bool) (*subscription.Subscription, error) {
	action := ActionPaymentFailed
	if paid {
		action = ActionPaymentPaid
	}

	var sub *subscription.Subscription
	err := s.run(ctx, accountID, action, func(ctx context.Context, a *account) error {
		if a.sub == nil {
			return subscription.ErrSubscriptionNotFound
		}
		next := subscription.StatusPastDue
		if paid {
			next = subscription.StatusActive
		}
		if a.sub.Status != next {
			a.sub.Status = next
			a.sub.UpdatedAt = a.now
			if err := a.tx.SaveSubscription(ctx, a.sub); err != nil {
				return err
			}
		}
		sub = a.sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (a *account) slots() *SlotResult {
	acc := a.accountant()
	return &SlotResult{
		AdditionalSlots:  a.sub.AdditionalDeviceSlots,
		EffectiveLimit:   acc.EffectiveLimit(),
		OperationalCount: acc.OperationalCount(),
	}
}
