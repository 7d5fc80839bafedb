package planchange

import (
	"errors"

	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

var (
	ErrUnknownStrategy      = errors.New("planchange.errors.unknown_strategy")
	ErrStrategyNotOffered   = errors.New("planchange.errors.strategy_not_offered")
	ErrAlreadyOnPlan        = errors.New("planchange.errors.already_on_plan")
	ErrSelectionRequired    = errors.New("planchange.errors.device_selection_required")
	ErrDuplicateDevice      = errors.New("planchange.errors.duplicate_device_in_selection")
	ErrDeviceNotOwned       = errors.New("planchange.errors.device_not_owned")
	ErrDeviceNotOperational = errors.New("planchange.errors.device_not_operational")
	ErrSelectionTooLarge    = errors.New("planchange.errors.selection_exceeds_target_limit")
	ErrSelectionTooSmall    = errors.New("planchange.errors.selection_below_excess")
	ErrSelectionAboveExcess = errors.New("planchange.errors.selection_above_excess")
	ErrUnknownCurrentPlan   = errors.New("planchange.errors.current_plan_not_in_catalog")
)

var validationErrors = []error{
	ErrUnknownStrategy,
	ErrStrategyNotOffered,
	ErrAlreadyOnPlan,
	ErrSelectionRequired,
	ErrDuplicateDevice,
	ErrDeviceNotOwned,
	ErrDeviceNotOperational,
	ErrSelectionTooLarge,
	ErrSelectionTooSmall,
	ErrSelectionAboveExcess,
	plan.ErrPlanNotFound,
	plan.ErrInvalidInterval,
}

// IsValidationError reports whether err is an invalid-request rejection.
// Such errors are always returned before anything is written.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflictError reports whether err signals a state conflict, such as a missing active subscription.
func IsConflictError(err error) bool {
	return errors.Is(err, subscription.ErrNoActiveSubscription)
}
