package planchange

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dmitrymomot/devicecap/pkg/capacity"
	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// Warning texts surfaced to callers.
const (
	WarningNoRefunds = "Downgrades take effect without refunds; the unused part of the current period is not credited."
)

// Input is everything the analyzer looks at. Subscription and CurrentPlan are nil for accounts without a subscription.
type Input struct {
	AccountID    uuid.UUID
	Subscription *subscription.Subscription
	CurrentPlan  *plan.Plan
	Target       plan.Plan
	Interval     plan.Interval
	Devices      []*device.Device
	Now          time.Time
}

// Analyzer classifies plan changes and computes their impact. It performs no I/O.
type Analyzer struct {
	extraDevicePrice plan.Money
	fallbackLimit    int
	printer          *message.Printer
}

// NewAnalyzer creates an analyzer quoting extraDevicePrice per add-on slot per month.
func NewAnalyzer(extraDevicePrice plan.Money, fallbackLimit int) *Analyzer {
	return &Analyzer{
		extraDevicePrice: extraDevicePrice,
		fallbackLimit:    fallbackLimit,
		printer:          message.NewPrinter(language.English),
	}
}

// Classify applies the ordered classification rules; the first match wins.
func Classify(sub *subscription.Subscription, current *plan.Plan, target plan.Plan, interval plan.Interval, operational int) Classification {
	switch {
	case sub == nil || current == nil:
		return ClassNewSubscription
	case sub.PlanID == target.ID && sub.Interval == interval:
		return ClassCurrent
	case target.DeviceLimit > current.DeviceLimit:
		return ClassUpgrade
	case operational <= target.DeviceLimit:
		return ClassDowngradeSafe
	default:
		return ClassDowngradeWarning
	}
}

// Analyze builds the impact report. It never fails: missing data degrades to defaults.
func (a *Analyzer) Analyze(in Input) *Report {
	acc := capacity.New(in.Subscription, in.CurrentPlan, in.Devices,
		capacity.WithFallbackLimit(a.fallbackLimit),
		capacity.WithNow(in.Now),
	)

	class := Classify(in.Subscription, in.CurrentPlan, in.Target, in.Interval, acc.OperationalCount())
	excess := acc.ExcessOver(in.Target.DeviceLimit)

	r := &Report{
		AccountID:      in.AccountID,
		Classification: class,
		Target: PlanSnapshot{
			PlanID:         in.Target.ID,
			Name:           in.Target.Name,
			Tier:           in.Target.Tier,
			Interval:       in.Interval,
			Price:          in.Target.Price(in.Interval),
			DeviceLimit:    in.Target.DeviceLimit,
			EffectiveLimit: in.Target.DeviceLimit,
		},
		Devices: DeviceImpact{
			OperationalCount: acc.OperationalCount(),
			CurrentLimit:     acc.EffectiveLimit(),
			TargetLimit:      in.Target.DeviceLimit,
			Excess:           excess,
		},
		Strategies:  StrategiesFor(class),
		GeneratedAt: in.Now,
	}

	if acc.HasSubscription() {
		r.Current = &PlanSnapshot{
			PlanID:          in.CurrentPlan.ID,
			Name:            in.CurrentPlan.Name,
			Tier:            in.CurrentPlan.Tier,
			Interval:        in.Subscription.Interval,
			Price:           in.CurrentPlan.Price(in.Subscription.Interval),
			DeviceLimit:     in.CurrentPlan.DeviceLimit,
			AdditionalSlots: in.Subscription.AdditionalDeviceSlots,
			EffectiveLimit:  acc.EffectiveLimit(),
		}
	}

	if excess > 0 {
		for _, d := range capacity.RankForRemoval(acc.Operational(), excess, in.Now) {
			r.Devices.Candidates = append(r.Devices.Candidates, Candidate{
				ID:             d.ID,
				Name:           d.Name,
				DeviceTypeID:   d.DeviceTypeID,
				LastConnection: d.LastConnection,
				Recency:        capacity.TierOf(d, in.Now).String(),
				Offline:        d.IsOffline(in.Now),
			})
		}
	}

	r.Billing = a.billing(in, excess)
	r.Warnings = a.warnings(r)

	return r
}

// ExtraCost is the monthly price of n add-on slots.
func (a *Analyzer) ExtraCost(n int) plan.Money {
	return a.extraDevicePrice.Times(n)
}

// FormatMoney renders an amount in major units with its currency symbol.
func (a *Analyzer) FormatMoney(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount.StringFixed(2) + " " + code
	}
	return a.printer.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}

func (a *Analyzer) billing(in Input, excess int) BillingImpact {
	extra := a.extraDevicePrice.Decimal()

	current := decimal.Zero
	code := in.Target.Price(in.Interval).Currency
	if in.Subscription != nil && in.CurrentPlan != nil {
		slots := decimal.NewFromInt(int64(in.Subscription.AdditionalDeviceSlots))
		current = in.CurrentPlan.MonthlyEquivalent(in.Subscription.Interval).Add(extra.Mul(slots))
	}
	if code == "" {
		code = a.extraDevicePrice.Currency
	}
	target := in.Target.MonthlyEquivalent(in.Interval)

	b := BillingImpact{
		Currency:           code,
		CurrentMonthly:     current,
		TargetMonthly:      target,
		Difference:         target.Sub(current),
		ExtraDevicePrice:   extra,
		ExtraDevicesCost:   a.ExtraCost(excess).Decimal(),
		CurrentMonthlyText: a.FormatMoney(current, code),
		TargetMonthlyText:  a.FormatMoney(target, code),
	}
	if excess > 0 {
		b.ExtraDevicesQuote = a.FormatMoney(b.ExtraDevicesCost, a.extraDevicePrice.Currency)
	}
	return b
}

func (a *Analyzer) warnings(r *Report) []string {
	var w []string
	switch r.Classification {
	case ClassCurrent:
		w = append(w, fmt.Sprintf("The account is already on the %s plan billed per %s.", r.Target.Name, r.Target.Interval))
	case ClassDowngradeSafe:
		w = append(w, WarningNoRefunds)
	case ClassDowngradeWarning:
		w = append(w, WarningNoRefunds, excessWarning(r.Devices, r.Target.Name))
		w = append(w, fmt.Sprintf("Keeping all devices costs an extra %s per month.", r.Billing.ExtraDevicesQuote))
	case ClassNewSubscription:
		if r.Devices.Excess > 0 {
			w = append(w, excessWarning(r.Devices, r.Target.Name))
		}
	}
	return w
}

func excessWarning(d DeviceImpact, planName string) string {
	return fmt.Sprintf("%d operational devices exceed the %s plan limit of %d by %d.",
		d.OperationalCount, planName, d.TargetLimit, d.Excess)
}
