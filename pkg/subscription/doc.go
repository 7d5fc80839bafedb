// Package subscription holds the subscription entity and the scheduled
// plan-change intent record.
//
// A Subscription belongs to exactly one account and references one plan.
// Its effective device limit is the plan's included limit plus paid add-on
// slots:
//
//	limit := sub.EffectiveLimit(p)
//
// Subscriptions are mutated in place on plan changes, slot changes and
// cancellation, and are never hard-deleted. A ScheduledChange records a
// deferred "apply at period end" decision until a time-triggered runner
// applies or cancels it.
package subscription
