package device

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/devicecap/pkg/statemachine"
)

// Event triggers a lifecycle transition.
type Event string

const (
	EventActivate Event = "activate"
	EventSuspend  Event = "suspend"
	EventWake     Event = "wake"
	EventDisable  Event = "disable"
	EventEnable   Event = "enable"
)

type transitionData struct {
	device *Device
	reason string
	now    time.Time
}

var lifecycle = statemachine.MustNew(
	statemachine.WithTransition(StatePending, StateActive, EventActivate,
		statemachine.WithAction(touch)),
	statemachine.WithTransition(StateActive, StateSuspended, EventSuspend,
		statemachine.WithAction(recordSuspension)),
	statemachine.WithTransition(StateSuspended, StateActive, EventWake,
		statemachine.WithAction(clearSuspension)),
	statemachine.WithTransitionFromAny([]State{StatePending, StateActive, StateSuspended}, StateDisabled, EventDisable,
		statemachine.WithAction(recordDisable)),
	// Enable restores the remembered state; the pending fallback is last so it only wins when nothing was recorded.
	statemachine.WithTransition(StateDisabled, StateActive, EventEnable,
		statemachine.WithGuard(rememberedState(StateActive)),
		statemachine.WithAction(clearDisable)),
	statemachine.WithTransition(StateDisabled, StateSuspended, EventEnable,
		statemachine.WithGuard(rememberedState(StateSuspended)),
		statemachine.WithAction(clearDisable)),
	statemachine.WithTransition(StateDisabled, StatePending, EventEnable,
		statemachine.WithAction(clearDisable)),
)

// Activate moves a pending device to active.
func (d *Device) Activate(ctx context.Context, now time.Time) error {
	return d.fire(ctx, EventActivate, "", now)
}

// Suspend moves an active device to suspended and records why.
// Suspending an already suspended device is a no-op, so bulk callers can invoke it speculatively.
func (d *Device) Suspend(ctx context.Context, reason string, now time.Time) error {
	if d.State == StateSuspended {
		return nil
	}
	return d.fire(ctx, EventSuspend, reason, now)
}

// Wake returns a suspended device to active and clears suspension metadata.
// Waking an active device is a no-op.
func (d *Device) Wake(ctx context.Context, now time.Time) error {
	if d.State == StateActive {
		return nil
	}
	return d.fire(ctx, EventWake, "", now)
}

// Disable soft-removes the device from any non-disabled state, remembering that state for Enable.
// Disabling twice keeps the first remembered state.
func (d *Device) Disable(ctx context.Context, reason string, now time.Time) error {
	if d.State == StateDisabled {
		return nil
	}
	return d.fire(ctx, EventDisable, reason, now)
}

// Enable restores the state remembered by Disable, or pending when none was recorded.
func (d *Device) Enable(ctx context.Context, now time.Time) error {
	return d.fire(ctx, EventEnable, "", now)
}

// Can reports whether the event is permitted from the device's current state.
func (d *Device) Can(ctx context.Context, event Event) bool {
	return lifecycle.CanFire(ctx, d.State, event, &transitionData{device: d})
}

func (d *Device) fire(ctx context.Context, event Event, reason string, now time.Time) error {
	next, err := lifecycle.Fire(ctx, d.State, event, &transitionData{device: d, reason: reason, now: now.UTC()})
	if err != nil {
		if statemachine.IsNoTransitionAvailableError(err) || statemachine.IsTransitionRejectedError(err) {
			return errors.Join(ErrInvalidTransition, err)
		}
		return err
	}
	d.State = next
	return nil
}

func touch(_ context.Context, _, _ State, _ Event, data any) error {
	td := data.(*transitionData)
	td.device.UpdatedAt = td.now
	return nil
}

func recordSuspension(_ context.Context, _, _ State, _ Event, data any) error {
	td := data.(*transitionData)
	now := td.now
	td.device.SuspensionReason = td.reason
	td.device.SuspendedAt = &now
	td.device.UpdatedAt = now
	return nil
}

func clearSuspension(_ context.Context, _, _ State, _ Event, data any) error {
	td := data.(*transitionData)
	td.device.SuspensionReason = ""
	td.device.SuspendedAt = nil
	td.device.UpdatedAt = td.now
	return nil
}

func recordDisable(_ context.Context, from, _ State, _ Event, data any) error {
	td := data.(*transitionData)
	now := td.now
	td.device.StateBeforeDisable = from
	td.device.DisabledReason = td.reason
	td.device.DisabledAt = &now
	td.device.UpdatedAt = now
	return nil
}

// clearDisable keeps suspension fields: a device disabled while suspended comes back suspended for the same reason.
func clearDisable(_ context.Context, _, _ State, _ Event, data any) error {
	td := data.(*transitionData)
	td.device.StateBeforeDisable = ""
	td.device.DisabledReason = ""
	td.device.DisabledAt = nil
	td.device.UpdatedAt = td.now
	return nil
}

func rememberedState(want State) statemachine.Guard[State, Event] {
	return func(_ context.Context, _ State, _ Event, data any) bool {
		td, ok := data.(*transitionData)
		return ok && td.device.StateBeforeDisable == want
	}
}
