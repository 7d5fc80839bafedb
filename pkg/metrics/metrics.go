package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devicecap"

// Metrics holds the engine's collectors.
type Metrics struct {
	planChanges      *prometheus.CounterVec
	activations      *prometheus.CounterVec
	deviceActions    *prometheus.CounterVec
	scheduledApplied prometheus.Counter
	scheduledRuns    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the collectors with reg. It panics if they are already registered there.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		planChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_changes_total",
			Help:      "Plan change requests by strategy and outcome.",
		}, []string{"strategy", "status"}),
		activations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_activations_total",
			Help:      "Successful device activations by capacity warning.",
		}, []string{"warning"}),
		deviceActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_actions_total",
			Help:      "Committed device and subscription actions.",
		}, []string{"action"}),
		scheduledApplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "changes_applied_total",
			Help:      "Scheduled plan changes resolved by the scheduler.",
		}),
		scheduledRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Scheduler runs by result.",
		}, []string{"result"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) PlanChange(strategy, status string) {
	m.planChanges.WithLabelValues(label(strategy), status).Inc()
}

func (m *Metrics) DeviceActivated(warning string) {
	m.activations.WithLabelValues(label(warning)).Inc()
}

func (m *Metrics) DeviceAction(action string) {
	m.deviceActions.WithLabelValues(action).Inc()
}

// ScheduledRun records one scheduler pass.
func (m *Metrics) ScheduledRun(applied int, err error) {
	m.scheduledApplied.Add(float64(applied))
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.scheduledRuns.WithLabelValues(result).Inc()
}

// Middleware counts requests by chi route pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func label(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
