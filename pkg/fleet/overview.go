package fleet

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// Overview is a read-only snapshot of an account's subscription and device capacity.
type Overview struct {
	Subscription     *subscription.Subscription    `json:"subscription,omitempty"`
	ScheduledChange  *subscription.ScheduledChange `json:"scheduled_change,omitempty"`
	Devices          []*device.Device              `json:"devices"`
	OperationalCount int                           `json:"operational_count"`
	EffectiveLimit   int                           `json:"effective_limit"`
	AvailableSlots   int                           `json:"available_slots"`
	OverCapacity     bool                          `json:"over_capacity"`
}

// Overview reads the account without taking its write lock.
func (s *Service) Overview(ctx context.Context, accountID uuid.UUID) (*Overview, error) {
	var out *Overview
	err := s.store.View(ctx, accountID, func(ctx context.Context, tx store.Tx) error {
		a, err := s.load(ctx, tx, accountID)
		if err != nil {
			return err
		}
		acc := a.accountant()
		out = &Overview{
			Subscription:     a.sub,
			Devices:          a.devices,
			OperationalCount: acc.OperationalCount(),
			EffectiveLimit:   acc.EffectiveLimit(),
			AvailableSlots:   max(acc.AvailableSlots(), 0),
			OverCapacity:     acc.IsOverCapacity(),
		}
		pending, err := tx.PendingScheduledChange(ctx, accountID)
		switch {
		case err == nil:
			out.ScheduledChange = pending
		case !errors.Is(err, subscription.ErrScheduledChangeNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
