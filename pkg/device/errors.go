package device

import "errors"

var (
	ErrDeviceNotFound    = errors.New("device.errors.device_not_found")
	ErrInvalidTransition = errors.New("device.errors.invalid_state_transition")
	ErrTokenNotFound     = errors.New("device.errors.activation_token_not_found")
)
