package activation

import (
	"errors"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

var (
	ErrEmptySecret       = errors.New("activation.errors.empty_token_secret")
	ErrInvalidToken      = errors.New("activation.errors.invalid_token")
	ErrTokenExpired      = errors.New("activation.errors.token_expired")
	ErrTokenAlreadyUsed  = errors.New("activation.errors.token_already_used")
	ErrWrongDeviceType   = errors.New("activation.errors.token_not_valid_for_device_type")
	ErrDeviceTypeMissing = errors.New("activation.errors.device_type_required")
)

var validationErrors = []error{
	ErrInvalidToken,
	ErrTokenExpired,
	ErrTokenAlreadyUsed,
	ErrWrongDeviceType,
	ErrDeviceTypeMissing,
	device.ErrTokenNotFound,
}

// IsValidationError reports whether err rejects the request itself: a missing,
// forged, expired, used or mismatched token.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflictError reports whether the account's subscription state forbids activation.
func IsConflictError(err error) bool {
	return errors.Is(err, subscription.ErrNoActiveSubscription)
}
