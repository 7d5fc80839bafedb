package planchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/capacity"
	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// Runner applies scheduled plan changes whose effective time has passed.
// It is the time-triggered collaborator for the end_of_period strategy.
type Runner struct {
	exec      *Executor
	batchSize int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBatchSize caps how many due changes one ApplyDue call handles.
func WithBatchSize(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRunner(exec *Executor, opts ...RunnerOption) *Runner {
	if exec == nil {
		panic("planchange: executor is required")
	}
	r := &Runner{exec: exec, batchSize: 100}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ApplyDue applies every due pending change, each in its own account transaction.
// A failing change stays pending for the next run; failures are joined into the returned error.
func (r *Runner) ApplyDue(ctx context.Context) (int, error) {
	now := r.exec.now().UTC()
	due, err := r.exec.store.DueScheduledChanges(ctx, now, r.batchSize)
	if err != nil {
		return 0, err
	}

	var (
		applied int
		errs    []error
	)
	for _, sc := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		log := r.exec.log.With(
			slog.String("account_id", sc.AccountID.String()),
			slog.String("scheduled_change_id", sc.ID.String()),
		)
		res, err := r.exec.applyScheduled(ctx, sc.ID, sc.AccountID)
		switch {
		case errors.Is(err, errStale):
			log.DebugContext(ctx, "scheduled change no longer pending")
		case err != nil:
			r.exec.recorder.PlanChange(sc.Strategy, "failed")
			log.WarnContext(ctx, "scheduled change failed", slog.Any("error", err))
			errs = append(errs, fmt.Errorf("scheduled change %s: %w", sc.ID, err))
		default:
			applied++
			attrs := []any{slog.String("note", res.note)}
			if res.result != nil {
				r.exec.recorder.PlanChange(string(res.result.Strategy), string(StatusCompleted))
				attrs = append(attrs,
					slog.String("strategy", string(res.result.Strategy)),
					slog.Int("suspended", res.result.SuspendedCount),
					slog.Int("woken", res.result.WokenCount),
				)
			}
			log.InfoContext(ctx, "scheduled change applied", attrs...)
		}
	}

	return applied, errors.Join(errs...)
}

// errStale means the change was resolved or replaced after it was listed.
var errStale = errors.New("planchange: scheduled change is stale")

type scheduledOutcome struct {
	result *Result
	note   string
}

func (e *Executor) applyScheduled(ctx context.Context, id, accountID uuid.UUID) (*scheduledOutcome, error) {
	var out *scheduledOutcome
	err := e.store.InAccountTx(ctx, accountID, func(ctx context.Context, tx store.Tx) error {
		now := e.now().UTC()
		pending, err := tx.PendingScheduledChange(ctx, accountID)
		if errors.Is(err, subscription.ErrScheduledChangeNotFound) {
			return errStale
		}
		if err != nil {
			return err
		}
		if pending.ID != id || !pending.IsDue(now) {
			return errStale
		}

		target, err := e.target(pending.TargetPlanID, pending.TargetInterval)
		if errors.Is(err, plan.ErrPlanNotFound) {
			pending.MarkCanceled(now, "target plan is no longer offered")
			out = &scheduledOutcome{note: pending.Note}
			return tx.SaveScheduledChange(ctx, pending)
		}
		if err != nil {
			return err
		}

		c, err := e.begin(ctx, tx, accountID, target, pending.TargetInterval)
		if err != nil {
			return err
		}

		out = &scheduledOutcome{}
		switch c.report.Classification {
		case ClassCurrent:
			out.note = "account was already on the target plan"
		case ClassNewSubscription:
			pending.MarkCanceled(now, "subscription ended before the scheduled change")
			out.note = pending.Note
			return tx.SaveScheduledChange(ctx, pending)
		default:
			strategy, keep := c.scheduledStrategy(pending)
			if out.result, err = c.apply(ctx, strategy, keep); err != nil {
				return err
			}
			out.note = out.result.Message
		}

		pending.MarkApplied(now, out.note)
		return tx.SaveScheduledChange(ctx, pending)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scheduledStrategy picks an immediate-family strategy for a due change from the fresh report.
// When devices exceed the target limit, the stored keep-set is honored if still valid;
// otherwise the devices ranked first for removal are dropped.
func (c *change) scheduledStrategy(sc *subscription.ScheduledChange) (Strategy, []uuid.UUID) {
	if c.report.Classification != ClassDowngradeWarning {
		return StrategyImmediate, nil
	}

	if len(sc.DeviceIDs) > 0 {
		if keep, err := c.operationalSelection(sc.DeviceIDs); err == nil && len(keep) <= c.target.DeviceLimit {
			return StrategyImmediateWithSelection, sc.DeviceIDs
		}
	}

	acc := c.accountant()
	drop := capacity.RankForRemoval(acc.Operational(), c.report.Devices.Excess, c.now)
	var keep []uuid.UUID
	for _, d := range acc.Operational() {
		if !slices.ContainsFunc(drop, func(x *device.Device) bool { return x.ID == d.ID }) {
			keep = append(keep, d.ID)
		}
	}
	return StrategyImmediateWithSelection, keep
}
