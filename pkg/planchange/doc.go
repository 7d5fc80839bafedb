// Package planchange analyzes and executes subscription plan changes against
// an account's device capacity.
//
// The Analyzer is pure: it classifies a change (new_subscription, current,
// upgrade, downgrade_safe, downgrade_warning), ranks devices that would have
// to go, quotes billing impact and lists the strategies available. The
// Executor re-derives that report inside an account transaction and applies
// one strategy atomically:
//
//	exec := planchange.NewExecutor(st, catalog,
//	    planchange.WithExtraDevicePrice(plan.Cents(500, "USD")),
//	    planchange.WithLogger(log),
//	)
//	res, err := exec.Execute(ctx, planchange.Request{
//	    AccountID: accountID,
//	    PlanID:    "basic",
//	    Interval:  plan.IntervalMonth,
//	    Strategy:  planchange.StrategyImmediateWithSelection,
//	    DeviceIDs: keep,
//	})
//
// The end_of_period strategy only records a ScheduledChange; Runner.ApplyDue
// applies due changes later with an immediate-family strategy.
//
// Errors are classified with IsValidationError and IsConflictError; anything
// else is a failure of the underlying store.
package planchange
