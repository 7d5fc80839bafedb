package scheduler

import "errors"

var (
	ErrInvalidSpec    = errors.New("scheduler.errors.invalid_spec")
	ErrAlreadyStarted = errors.New("scheduler.errors.already_started")
)
