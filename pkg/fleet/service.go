package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/capacity"
	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// DeviceResult describes the devices touched by an action and the capacity afterwards.
type DeviceResult struct {
	Devices          []*device.Device `json:"devices"`
	Changed          int              `json:"changed"`
	OperationalCount int              `json:"operational_count"`
	EffectiveLimit   int              `json:"effective_limit"`
	Message          string           `json:"message,omitempty"`
}

// Service performs device and subscription actions for one account at a time.
type Service struct {
	store         store.Store
	catalog       *plan.Catalog
	log           *slog.Logger
	now           func() time.Time
	fallbackLimit int
	recorder      Recorder
}

// NewService creates a fleet service. Store and catalog are required.
func NewService(st store.Store, catalog *plan.Catalog, opts ...Option) *Service {
	if st == nil {
		panic("fleet: store is required")
	}
	if catalog == nil {
		panic("fleet: plan catalog is required")
	}
	s := &Service{
		store:         st,
		catalog:       catalog,
		log:           slog.Default(),
		now:           time.Now,
		fallbackLimit: capacity.DefaultFallbackLimit,
		recorder:      noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuspendDevices suspends the given active devices. Already suspended ids are left as they are.
// An empty reason is recorded as device.ReasonUser.
func (s *Service) SuspendDevices(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID, reason string) (*DeviceResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoDevicesSelected
	}
	if reason == "" {
		reason = device.ReasonUser
	}

	var res *DeviceResult
	err := s.run(ctx, accountID, ActionSuspend, func(ctx context.Context, a *account) error {
		selected, err := a.pick(ids)
		if err != nil {
			return err
		}
		changed := 0
		for _, d := range selected {
			if d.State == device.StateSuspended {
				continue
			}
			if err := d.Suspend(ctx, reason, a.now); err != nil {
				return fmt.Errorf("device %s: %w", d.ID, err)
			}
			if err := a.tx.SaveDevice(ctx, d); err != nil {
				return err
			}
			changed++
		}
		res = a.result(selected, changed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// WakeDevices brings suspended and pending devices to active. Already active ids are no-ops.
// Pending devices are those enabled without a remembered state.
// The call is rejected as a whole when the devices to wake exceed the available slots.
func (s *Service) WakeDevices(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) (*DeviceResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoDevicesSelected
	}

	var res *DeviceResult
	err := s.run(ctx, accountID, ActionWake, func(ctx context.Context, a *account) error {
		selected, err := a.pick(ids)
		if err != nil {
			return err
		}

		var wake []*device.Device
		for _, d := range selected {
			switch d.State {
			case device.StateActive:
			case device.StateSuspended, device.StatePending:
				wake = append(wake, d)
			default:
				return errors.Join(device.ErrInvalidTransition, fmt.Errorf("device %s is %s", d.ID, d.State))
			}
		}
		if available := a.accountant().AvailableSlots(); len(wake) > available {
			return errors.Join(ErrInsufficientCapacity,
				fmt.Errorf("waking %d devices, %d slots available", len(wake), available))
		}

		for _, d := range wake {
			wakeFn := d.Wake
			if d.State == device.StatePending {
				wakeFn = d.Activate
			}
			if err := wakeFn(ctx, a.now); err != nil {
				return fmt.Errorf("device %s: %w", d.ID, err)
			}
			if err := a.tx.SaveDevice(ctx, d); err != nil {
				return err
			}
		}
		res = a.result(selected, len(wake))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DisableDevice soft-removes a device. Disabling a disabled device is a no-op.
func (s *Service) DisableDevice(ctx context.Context, accountID, deviceID uuid.UUID, reason string) (*DeviceResult, error) {
	if reason == "" {
		reason = device.ReasonUser
	}

	var res *DeviceResult
	err := s.run(ctx, accountID, ActionDisable, func(ctx context.Context, a *account) error {
		d, err := store.FindDevice(a.devices, deviceID)
		if err != nil {
			return err
		}
		changed := 0
		if d.State != device.StateDisabled {
			if err := d.Disable(ctx, reason, a.now); err != nil {
				return err
			}
			if err := a.tx.SaveDevice(ctx, d); err != nil {
				return err
			}
			changed = 1
		}
		res = a.result([]*device.Device{d}, changed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EnableDevice restores a disabled device to its previous state. A device that was active
// comes back suspended with reason "capacity" when the account has no free slot.
func (s *Service) EnableDevice(ctx context.Context, accountID, deviceID uuid.UUID) (*DeviceResult, error) {
	var res *DeviceResult
	err := s.run(ctx, accountID, ActionEnable, func(ctx context.Context, a *account) error {
		d, err := store.FindDevice(a.devices, deviceID)
		if err != nil {
			return err
		}
		noRoom := d.StateBeforeDisable == device.StateActive && a.accountant().AvailableSlots() <= 0

		if err := d.Enable(ctx, a.now); err != nil {
			return err
		}
		if noRoom {
			if err := d.Suspend(ctx, device.ReasonCapacity, a.now); err != nil {
				return err
			}
		}
		if err := a.tx.SaveDevice(ctx, d); err != nil {
			return err
		}

		res = a.result([]*device.Device{d}, 1)
		if noRoom {
			res.Message = "The device was enabled but suspended because the account has no free device slot."
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) run(ctx context.Context, accountID uuid.UUID, action string, fn func(ctx context.Context, a *account) error) error {
	log := s.log.With(slog.String("account_id", accountID.String()), slog.String("action", action))

	err := s.store.InAccountTx(ctx, accountID, func(ctx context.Context, tx store.Tx) error {
		a, err := s.load(ctx, tx, accountID)
		if err != nil {
			return err
		}
		return fn(ctx, a)
	})
	if err != nil {
		if IsValidationError(err) || IsConflictError(err) || IsNotFoundError(err) {
			log.DebugContext(ctx, "device action rejected", slog.Any("error", err))
		} else {
			log.ErrorContext(ctx, "device action failed", slog.Any("error", err))
		}
		return err
	}

	s.recorder.DeviceAction(action)
	log.InfoContext(ctx, "device action committed")
	return nil
}

// account is the state of one account loaded inside a transaction.
type account struct {
	id            uuid.UUID
	tx            store.Tx
	now           time.Time
	sub           *subscription.Subscription
	plan          *plan.Plan
	devices       []*device.Device
	fallbackLimit int
}

func (s *Service) load(ctx context.Context, tx store.Tx, accountID uuid.UUID) (*account, error) {
	a := &account{id: accountID, tx: tx, now: s.now().UTC(), fallbackLimit: s.fallbackLimit}

	sub, err := tx.CurrentSubscription(ctx, accountID)
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
	case err != nil:
		return nil, err
	default:
		p, err := s.catalog.Get(sub.PlanID)
		if err != nil {
			return nil, fmt.Errorf("fleet: subscription plan %q is not in the catalog", sub.PlanID)
		}
		a.sub, a.plan = sub, &p
	}

	if a.devices, err = tx.Devices(ctx, accountID); err != nil {
		return nil, err
	}
	return a, nil
}

// accountant reflects the current in-transaction device states.
func (a *account) accountant() *capacity.Accountant {
	return capacity.New(a.sub, a.plan, a.devices,
		capacity.WithFallbackLimit(a.fallbackLimit), capacity.WithNow(a.now))
}

// pick resolves ids to devices of the account, dropping duplicates and keeping request order.
func (a *account) pick(ids []uuid.UUID) ([]*device.Device, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]*device.Device, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		d, err := store.FindDevice(a.devices, id)
		if err != nil {
			return nil, errors.Join(err, fmt.Errorf("device %s", id))
		}
		out = append(out, d)
	}
	return out, nil
}

func (a *account) result(devices []*device.Device, changed int) *DeviceResult {
	acc := a.accountant()
	return &DeviceResult{
		Devices:          devices,
		Changed:          changed,
		OperationalCount: acc.OperationalCount(),
		EffectiveLimit:   acc.EffectiveLimit(),
	}
}
