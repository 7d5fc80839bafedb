package planchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// Request asks for a plan change.
type Request struct {
	AccountID uuid.UUID
	PlanID    string
	Interval  plan.Interval
	Strategy  Strategy
	// DeviceIDs is the keep-set for immediate_with_selection and end_of_period,
	// and the suspend-set for suspend_excess.
	DeviceIDs []uuid.UUID
}

// Result is the outcome of a successful plan change.
type Result struct {
	Status          Status                        `json:"status"`
	Classification  Classification                `json:"classification"`
	Strategy        Strategy                      `json:"strategy"`
	Subscription    *subscription.Subscription    `json:"subscription,omitempty"`
	ScheduledChange *subscription.ScheduledChange `json:"scheduled_change,omitempty"`
	SuspendedCount  int                           `json:"suspended_count"`
	WokenCount      int                           `json:"woken_count"`
	ExtraSlots      int                           `json:"extra_slots"`
	ExtraCost       plan.Money                    `json:"extra_cost"` // monthly price of ExtraSlots
	Message         string                        `json:"message"`
	Warnings        []string                      `json:"warnings,omitempty"`
}

// Executor previews and applies plan changes.
// Every Execute re-derives the impact report inside the account transaction
// and applies all of its writes atomically.
type Executor struct {
	store    store.Store
	catalog  *plan.Catalog
	analyzer *Analyzer
	log      *slog.Logger
	now      func() time.Time
	recorder Recorder

	extraDevicePrice plan.Money
	fallbackLimit    int
}

// NewExecutor creates an Executor. Store and catalog are required.
func NewExecutor(st store.Store, catalog *plan.Catalog, opts ...Option) *Executor {
	if st == nil {
		panic("planchange: store is required")
	}
	if catalog == nil {
		panic("planchange: plan catalog is required")
	}

	e := &Executor{
		store:            st,
		catalog:          catalog,
		log:              slog.Default(),
		now:              time.Now,
		recorder:         noopRecorder{},
		extraDevicePrice: DefaultExtraDevicePrice,
		fallbackLimit:    defaultFallbackLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.analyzer = NewAnalyzer(e.extraDevicePrice, e.fallbackLimit)

	return e
}

// Preview returns the impact report for moving the account to planID/interval. It writes nothing.
func (e *Executor) Preview(ctx context.Context, accountID uuid.UUID, planID string, interval plan.Interval) (*Report, error) {
	target, err := e.target(planID, interval)
	if err != nil {
		return nil, err
	}

	var report *Report
	err = e.store.View(ctx, accountID, func(ctx context.Context, tx store.Tx) error {
		snap, err := e.load(ctx, tx, accountID)
		if err != nil {
			return err
		}
		report = e.analyzer.Analyze(snap.input(accountID, target, interval, e.now().UTC()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// Execute applies a plan change with the chosen strategy.
// Validation failures are returned before anything is written.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	log := e.log.With(
		slog.String("account_id", req.AccountID.String()),
		slog.String("plan_id", req.PlanID),
		slog.String("strategy", string(req.Strategy)),
	)

	if !req.Strategy.Valid() {
		return nil, e.reject(ctx, log, req.Strategy, errors.Join(ErrUnknownStrategy, fmt.Errorf("strategy %q", req.Strategy)))
	}
	if req.Strategy.needsSelection() && len(req.DeviceIDs) == 0 {
		return nil, e.reject(ctx, log, req.Strategy, ErrSelectionRequired)
	}
	target, err := e.target(req.PlanID, req.Interval)
	if err != nil {
		return nil, e.reject(ctx, log, req.Strategy, err)
	}

	var res *Result
	err = e.store.InAccountTx(ctx, req.AccountID, func(ctx context.Context, tx store.Tx) error {
		c, err := e.begin(ctx, tx, req.AccountID, target, req.Interval)
		if err != nil {
			return err
		}
		switch {
		case c.report.Classification == ClassCurrent:
			return errors.Join(ErrAlreadyOnPlan, fmt.Errorf("plan %s billed per %s", target.ID, req.Interval))
		case !c.report.Offers(req.Strategy):
			return errors.Join(ErrStrategyNotOffered,
				fmt.Errorf("%s is not available for a %s change", req.Strategy, c.report.Classification))
		}

		res, err = c.apply(ctx, req.Strategy, req.DeviceIDs)
		return err
	})
	if err != nil {
		return nil, e.reject(ctx, log, req.Strategy, err)
	}

	e.recorder.PlanChange(string(req.Strategy), string(res.Status))
	log.InfoContext(ctx, "plan change committed",
		slog.String("classification", string(res.Classification)),
		slog.String("status", string(res.Status)),
		slog.Int("suspended", res.SuspendedCount),
		slog.Int("woken", res.WokenCount),
		slog.Int("extra_slots", res.ExtraSlots),
	)

	return res, nil
}

// CancelScheduledChange cancels the account's pending scheduled change.
func (e *Executor) CancelScheduledChange(ctx context.Context, accountID uuid.UUID) (*subscription.ScheduledChange, error) {
	var canceled *subscription.ScheduledChange
	err := e.store.InAccountTx(ctx, accountID, func(ctx context.Context, tx store.Tx) error {
		pending, err := tx.PendingScheduledChange(ctx, accountID)
		if err != nil {
			return err
		}
		pending.MarkCanceled(e.now(), "canceled by account")
		if err := tx.SaveScheduledChange(ctx, pending); err != nil {
			return err
		}
		canceled = pending
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "scheduled change canceled",
		slog.String("account_id", accountID.String()),
		slog.String("scheduled_change_id", canceled.ID.String()),
	)
	return canceled, nil
}

// Analyzer exposes the executor's analyzer, e.g. for money formatting.
func (e *Executor) Analyzer() *Analyzer {
	return e.analyzer
}

func (e *Executor) reject(ctx context.Context, log *slog.Logger, strategy Strategy, err error) error {
	if IsValidationError(err) || IsConflictError(err) {
		e.recorder.PlanChange(string(strategy), "rejected")
		log.DebugContext(ctx, "plan change rejected", slog.Any("error", err))
		return err
	}
	e.recorder.PlanChange(string(strategy), "failed")
	log.ErrorContext(ctx, "plan change failed", slog.Any("error", err))
	return err
}

func (e *Executor) target(planID string, interval plan.Interval) (plan.Plan, error) {
	if !interval.Valid() {
		return plan.Plan{}, errors.Join(plan.ErrInvalidInterval, fmt.Errorf("interval %q", interval))
	}
	return e.catalog.Get(planID)
}

// snapshot is the account state read at the start of a transaction.
type snapshot struct {
	sub     *subscription.Subscription
	plan    *plan.Plan
	devices []*device.Device
}

func (s *snapshot) input(accountID uuid.UUID, target plan.Plan, interval plan.Interval, now time.Time) Input {
	return Input{
		AccountID:    accountID,
		Subscription: s.sub,
		CurrentPlan:  s.plan,
		Target:       target,
		Interval:     interval,
		Devices:      s.devices,
		Now:          now,
	}
}

func (e *Executor) load(ctx context.Context, tx store.Tx, accountID uuid.UUID) (*snapshot, error) {
	snap := &snapshot{}

	sub, err := tx.CurrentSubscription(ctx, accountID)
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
	case err != nil:
		return nil, err
	default:
		p, err := e.catalog.Get(sub.PlanID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCurrentPlan, sub.PlanID)
		}
		snap.sub, snap.plan = sub, &p
	}

	if snap.devices, err = tx.Devices(ctx, accountID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (e *Executor) begin(ctx context.Context, tx store.Tx, accountID uuid.UUID, target plan.Plan, interval plan.Interval) (*change, error) {
	snap, err := e.load(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	return &change{
		e:        e,
		tx:       tx,
		account:  accountID,
		now:      now,
		snap:     snap,
		target:   target,
		interval: interval,
		report:   e.analyzer.Analyze(snap.input(accountID, target, interval, now)),
	}, nil
}
