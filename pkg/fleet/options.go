package fleet

import (
	"log/slog"
	"time"
)

// Action names reported to the Recorder.
const (
	ActionSuspend       = "suspend"
	ActionWake          = "wake"
	ActionDisable       = "disable"
	ActionEnable        = "enable"
	ActionAddSlot       = "add_slot"
	ActionRemoveSlot    = "remove_slot"
	ActionCancel        = "cancel_subscription"
	ActionPaymentFailed = "payment_failed"
	ActionPaymentPaid   = "payment_succeeded"
)

// Recorder receives committed actions, e.g. for metrics.
type Recorder interface {
	DeviceAction(action string)
}

type noopRecorder struct{}

func (noopRecorder) DeviceAction(string) {}

// Option configures a Service.
type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFallbackLimit sets the device limit of accounts without a subscription.
func WithFallbackLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.fallbackLimit = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}
