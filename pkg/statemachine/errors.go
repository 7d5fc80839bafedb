package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition     = errors.New("statemachine.errors.invalid_transition")
	ErrNoTransitions         = errors.New("statemachine.errors.no_transitions")
	ErrNoTransitionAvailable = errors.New("statemachine.errors.no_transition_available")
	ErrTransitionRejected    = errors.New("statemachine.errors.transition_rejected")
)

// TransitionError reports the state and event of a failed Fire.
// It unwraps to ErrNoTransitionAvailable or ErrTransitionRejected.
type TransitionError struct {
	State string
	Event string
	cause error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: state %q, event %q", e.cause, e.State, e.Event)
}

func (e *TransitionError) Unwrap() error {
	return e.cause
}

func transitionError(cause error, state, event any) *TransitionError {
	return &TransitionError{State: fmt.Sprint(state), Event: fmt.Sprint(event), cause: cause}
}

// IsNoTransitionAvailableError reports whether the event is not defined for the state.
func IsNoTransitionAvailableError(err error) bool {
	return errors.Is(err, ErrNoTransitionAvailable)
}

// IsTransitionRejectedError reports whether guards blocked every candidate transition.
func IsTransitionRejectedError(err error) bool {
	return errors.Is(err, ErrTransitionRejected)
}
