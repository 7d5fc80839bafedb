// Package scheduler periodically applies due scheduled plan changes.
//
//	s, err := scheduler.New(runner, "@every 1m", scheduler.WithLogger(log))
//	s.Start(ctx)
//	defer s.Stop(context.Background())
//
// The spec accepts standard five-field cron expressions and descriptors such as
// "@hourly" or "@every 30s". Overlapping runs are skipped, not queued.
package scheduler
