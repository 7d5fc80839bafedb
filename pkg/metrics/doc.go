// Package metrics exposes Prometheus counters for the engine's domain events and
// HTTP traffic.
//
// A *Metrics value satisfies the Recorder interfaces of planchange, activation
// and fleet, so wiring is a matter of passing it as an option:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	exec := planchange.NewExecutor(st, catalog, planchange.WithRecorder(m))
//	r.Use(m.Middleware)
//	r.Handle("/metrics", metrics.Handler())
package metrics
