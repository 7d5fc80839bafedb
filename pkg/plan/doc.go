// Package plan is the plan catalog: an immutable lookup from plan identity to
// the plan's included device limit, list prices and entitlement tier.
//
// Plans are loaded once from a Source (in-memory or YAML file) and validated:
//
//	catalog, err := plan.NewCatalog(ctx, plan.NewYAMLSource("plans.yaml"))
//	basic, err := catalog.Get("basic")
//
// Money amounts are integers in the smallest currency unit. Monthly-equivalent
// arithmetic uses github.com/shopspring/decimal so yearly prices divided by
// twelve do not lose precision before rounding to cents.
package plan
