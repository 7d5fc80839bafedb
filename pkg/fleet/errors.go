package fleet

import (
	"errors"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

var (
	ErrNoDevicesSelected    = errors.New("fleet.errors.no_devices_selected")
	ErrInsufficientCapacity = errors.New("fleet.errors.insufficient_capacity")
	ErrNoSlotToRemove       = errors.New("fleet.errors.no_slot_to_remove")
	ErrSlotInUse            = errors.New("fleet.errors.slot_in_use")
)

// IsValidationError reports whether err is caused by bad input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoDevicesSelected)
}

// IsConflictError reports whether err is caused by the current account state.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInsufficientCapacity) ||
		errors.Is(err, ErrNoSlotToRemove) ||
		errors.Is(err, ErrSlotInUse) ||
		errors.Is(err, device.ErrInvalidTransition) ||
		errors.Is(err, subscription.ErrNoActiveSubscription)
}

// IsNotFoundError reports whether err names a device or subscription that does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, device.ErrDeviceNotFound) ||
		errors.Is(err, subscription.ErrSubscriptionNotFound)
}
