package capacity

import (
	"time"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// DefaultFallbackLimit applies to accounts without a subscription.
const DefaultFallbackLimit = 1

// Accountant answers capacity questions about one account's device collection.
// Counts are computed in a single pass at construction and memoized only for the
// lifetime of this value; build a new Accountant per call because device state
// changes externally between calls.
type Accountant struct {
	sub           *subscription.Subscription
	plan          *plan.Plan
	devices       []*device.Device
	fallbackLimit int
	now           time.Time

	operational []*device.Device
	suspended   []*device.Device
}

// Option configures an Accountant.
type Option func(*Accountant)

// WithFallbackLimit sets the flat limit used when there is no subscription.
func WithFallbackLimit(n int) Option {
	return func(a *Accountant) {
		if n >= 0 {
			a.fallbackLimit = n
		}
	}
}

// WithNow sets the reference time for connectivity recency.
func WithNow(now time.Time) Option {
	return func(a *Accountant) {
		if !now.IsZero() {
			a.now = now
		}
	}
}

// New builds an Accountant. sub and p may be nil when the account has no subscription;
// a subscription without its plan is treated the same way.
func New(sub *subscription.Subscription, p *plan.Plan, devices []*device.Device, opts ...Option) *Accountant {
	a := &Accountant{
		sub:           sub,
		plan:          p,
		devices:       devices,
		fallbackLimit: DefaultFallbackLimit,
		now:           time.Now().UTC(),
	}
	if sub == nil || p == nil {
		a.sub, a.plan = nil, nil
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, d := range devices {
		switch d.State {
		case device.StateActive:
			a.operational = append(a.operational, d)
		case device.StateSuspended:
			a.suspended = append(a.suspended, d)
		}
	}

	return a
}

// HasSubscription reports whether limits come from a subscription rather than the fallback.
func (a *Accountant) HasSubscription() bool {
	return a.sub != nil
}

// OperationalCount counts devices in the active state only.
func (a *Accountant) OperationalCount() int {
	return len(a.operational)
}

// EffectiveLimit is plan limit plus add-on slots, or the fallback limit without a subscription.
func (a *Accountant) EffectiveLimit() int {
	if a.sub == nil {
		return a.fallbackLimit
	}
	return a.sub.EffectiveLimit(*a.plan)
}

// AvailableSlots is max(effective limit - operational count, 0).
func (a *Accountant) AvailableSlots() int {
	return max(a.EffectiveLimit()-a.OperationalCount(), 0)
}

// Excess is max(operational count - effective limit, 0).
func (a *Accountant) Excess() int {
	return max(a.OperationalCount()-a.EffectiveLimit(), 0)
}

// ExcessOver returns how many operational devices exceed an arbitrary limit.
func (a *Accountant) ExcessOver(limit int) int {
	return max(a.OperationalCount()-limit, 0)
}

// IsOverCapacity reports whether operational devices exceed the effective limit.
func (a *Accountant) IsOverCapacity() bool {
	return a.Excess() > 0
}

// Operational returns the operational devices in collection order.
func (a *Accountant) Operational() []*device.Device {
	return a.operational
}

// Now is the reference time used for recency decisions.
func (a *Accountant) Now() time.Time {
	return a.now
}

// RankForRemoval returns the n operational devices a downgrade should prefer to remove.
func (a *Accountant) RankForRemoval(n int) []*device.Device {
	return RankForRemoval(a.operational, n, a.now)
}

// WakeCandidates returns up to n suspended devices, most recently suspended first.
func (a *Accountant) WakeCandidates(n int) []*device.Device {
	return MostRecentlySuspended(a.suspended, n)
}
