package statemachine

import (
	"context"
	"fmt"
)

// Guard evaluates whether a transition should be allowed based on runtime conditions.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Action executes side effects during a transition. Returning an error prevents the transition.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Transition defines a state change triggered by an event, with optional guards and actions.
type Transition[S, E comparable] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]  // all must pass for the transition to be selected
	Actions []Action[S, E] // executed in order before the new state is returned
}

// Machine is an immutable transition table. It holds no current state:
// callers keep the state on their own entities and ask the machine for the next one.
// That makes one Machine safe to share across goroutines and entities.
type Machine[S, E comparable] struct {
	transitions map[S]map[E][]Transition[S, E]
}

// Fire resolves the transition for (current, event), runs its actions and returns the target state.
// When several transitions share the same source and event, the first one whose guards pass wins.
func (m *Machine[S, E]) Fire(ctx context.Context, current S, event E, data any) (S, error) {
	t, err := m.resolve(ctx, current, event, data)
	if err != nil {
		return current, err
	}

	for _, action := range t.Actions {
		if err := action(ctx, current, t.To, event, data); err != nil {
			return current, fmt.Errorf("action failed: %w", err)
		}
	}

	return t.To, nil
}

// CanFire reports whether Fire would find a permitted transition. Actions are not executed.
func (m *Machine[S, E]) CanFire(ctx context.Context, current S, event E, data any) bool {
	_, err := m.resolve(ctx, current, event, data)
	return err == nil
}

func (m *Machine[S, E]) resolve(ctx context.Context, current S, event E, data any) (*Transition[S, E], error) {
	candidates := m.transitions[current][event]
	if len(candidates) == 0 {
		return nil, transitionError(ErrNoTransitionAvailable, current, event)
	}

	for i := range candidates {
		if guardsPass(ctx, &candidates[i], current, event, data) {
			return &candidates[i], nil
		}
	}

	return nil, transitionError(ErrTransitionRejected, current, event)
}

func guardsPass[S, E comparable](ctx context.Context, t *Transition[S, E], current S, event E, data any) bool {
	for _, guard := range t.Guards {
		if guard != nil && !guard(ctx, current, event, data) {
			return false
		}
	}
	return true
}

func (m *Machine[S, E]) add(t Transition[S, E]) {
	if _, ok := m.transitions[t.From]; !ok {
		m.transitions[t.From] = make(map[E][]Transition[S, E])
	}
	m.transitions[t.From][t.Event] = append(m.transitions[t.From][t.Event], t)
}
