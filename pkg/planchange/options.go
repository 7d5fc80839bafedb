package planchange

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/devicecap/pkg/capacity"
	"github.com/dmitrymomot/devicecap/pkg/plan"
)

// Recorder receives plan change outcomes, e.g. for metrics.
type Recorder interface {
	PlanChange(strategy, status string)
}

type noopRecorder struct{}

func (noopRecorder) PlanChange(string, string) {}

// Option configures an Executor.
type Option func(*Executor)

func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock replaces time.Now, mainly for tests and period-end math.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithExtraDevicePrice sets the flat monthly price of one add-on device slot.
func WithExtraDevicePrice(price plan.Money) Option {
	return func(e *Executor) {
		e.extraDevicePrice = price
	}
}

// WithFallbackLimit sets the device limit of accounts without a subscription.
func WithFallbackLimit(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.fallbackLimit = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// DefaultExtraDevicePrice is $5.00 per device per month.
var DefaultExtraDevicePrice = plan.Cents(500, "USD")

const defaultFallbackLimit = capacity.DefaultFallbackLimit
