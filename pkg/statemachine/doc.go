// Package statemachine provides a small, generic finite-state-machine
// transition table.
//
// Unlike a classic FSM object, a Machine does not hold a current state. The
// state lives on the caller's entity (a database row, a struct field) and the
// machine only answers "given this state and this event, what comes next?".
// One Machine can therefore be built once at package init and shared by every
// entity of that kind without locking.
//
// # Usage
//
//	type State string
//	type Event string
//
//	machine := statemachine.MustNew(
//	    statemachine.WithTransition[State, Event]("draft", "in_review", "submit"),
//	    statemachine.WithTransition[State, Event]("in_review", "approved", "approve"),
//	)
//
//	next, err := machine.Fire(ctx, doc.State, "submit", doc)
//
// # Guards and Actions
//
// Several transitions may share the same source state and event; the first
// one whose guards all pass is selected. This allows branching on runtime
// data, e.g. restoring a remembered state. Actions run after selection and
// before the new state is returned; an action error aborts the transition.
//
// # Error Handling
//
//	if statemachine.IsNoTransitionAvailableError(err) { /* event not defined for state */ }
//	if statemachine.IsTransitionRejectedError(err)   { /* guards said no */ }
package statemachine
