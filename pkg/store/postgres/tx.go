package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/pg"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// tx runs queries in one pgx transaction. locking is false for View, whose
// read-only transactions reject FOR UPDATE.
type tx struct {
	q       pgx.Tx
	locking bool
}

func (t *tx) forUpdate() string {
	if t.locking {
		return "\n\t\tFOR UPDATE"
	}
	return ""
}

const selectSubscription = `SELECT id, account_id, plan_id, billing_interval, status, additional_device_slots,
	current_period_start, current_period_end, created_at, updated_at, canceled_at
	FROM subscriptions`

func scanSubscription(row pgx.CollectableRow) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := row.Scan(&s.ID, &s.AccountID, &s.PlanID, &s.Interval, &s.Status, &s.AdditionalDeviceSlots,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt, &s.CanceledAt)
	return &s, err
}

func (t *tx) CurrentSubscription(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	rows, err := t.q.Query(ctx, selectSubscription+`
		WHERE account_id = $1 AND status <> 'canceled'
		ORDER BY created_at DESC
		LIMIT 1`+t.forUpdate(), accountID)
	if err != nil {
		return nil, errors.Join(store.ErrTxFailed, err)
	}
	sub, err := pgx.CollectExactlyOneRow(rows, scanSubscription)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, errors.Join(store.ErrTxFailed, err)
	}
	return sub, nil
}

func (t *tx) SaveSubscription(ctx context.Context, s *subscription.Subscription) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO subscriptions (id, account_id, plan_id, billing_interval, status, additional_device_slots,
			current_period_start, current_period_end, created_at, updated_at, canceled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			billing_interval = EXCLUDED.billing_interval,
			status = EXCLUDED.status,
			additional_device_slots = EXCLUDED.additional_device_slots,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at,
			canceled_at = EXCLUDED.canceled_at`,
		s.ID, s.AccountID, s.PlanID, s.Interval, s.Status, s.AdditionalDeviceSlots,
		s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CreatedAt, s.UpdatedAt, s.CanceledAt)
	return wrap(err)
}

func (t *tx) CancelOtherSubscriptions(ctx context.Context, accountID, keepID uuid.UUID, now time.Time) (int, error) {
	tag, err := t.q.Exec(ctx, `
		UPDATE subscriptions SET status = 'canceled', canceled_at = $3, updated_at = $3
		WHERE account_id = $1 AND id <> $2 AND status <> 'canceled'`, accountID, keepID, now)
	if err != nil {
		return 0, wrap(err)
	}
	return int(tag.RowsAffected()), nil
}

const selectDevice = `SELECT id, account_id, device_type_id, name, state, last_connection, alert_status,
	suspension_reason, suspended_at, disabled_reason, disabled_at, state_before_disable, created_at, updated_at
	FROM devices`

func scanDevice(row pgx.CollectableRow) (*device.Device, error) {
	var d device.Device
	err := row.Scan(&d.ID, &d.AccountID, &d.DeviceTypeID, &d.Name, &d.State, &d.LastConnection, &d.AlertStatus,
		&d.SuspensionReason, &d.SuspendedAt, &d.DisabledReason, &d.DisabledAt, &d.StateBeforeDisable,
		&d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (t *tx) Devices(ctx context.Context, accountID uuid.UUID) ([]*device.Device, error) {
	rows, err := t.q.Query(ctx, selectDevice+`
		WHERE account_id = $1
		ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, wrap(err)
	}
	devices, err := pgx.CollectRows(rows, scanDevice)
	return devices, wrap(err)
}

func (t *tx) SaveDevice(ctx context.Context, d *device.Device) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO devices (id, account_id, device_type_id, name, state, last_connection, alert_status,
			suspension_reason, suspended_at, disabled_reason, disabled_at, state_before_disable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			state = EXCLUDED.state,
			last_connection = EXCLUDED.last_connection,
			alert_status = EXCLUDED.alert_status,
			suspension_reason = EXCLUDED.suspension_reason,
			suspended_at = EXCLUDED.suspended_at,
			disabled_reason = EXCLUDED.disabled_reason,
			disabled_at = EXCLUDED.disabled_at,
			state_before_disable = EXCLUDED.state_before_disable,
			updated_at = EXCLUDED.updated_at`,
		d.ID, d.AccountID, d.DeviceTypeID, d.Name, d.State, d.LastConnection, d.AlertStatus,
		d.SuspensionReason, d.SuspendedAt, d.DisabledReason, d.DisabledAt, d.StateBeforeDisable,
		d.CreatedAt, d.UpdatedAt)
	return wrap(err)
}

func (t *tx) ActivationTokenByDigest(ctx context.Context, digest string) (*device.ActivationToken, error) {
	rows, err := t.q.Query(ctx, `
		SELECT id, digest, device_type_id, purchase_ref, expires_at, used_at, device_id, created_at
		FROM activation_tokens
		WHERE digest = $1`+t.forUpdate(), digest)
	if err != nil {
		return nil, wrap(err)
	}
	tok, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (*device.ActivationToken, error) {
		var tk device.ActivationToken
		err := row.Scan(&tk.ID, &tk.Digest, &tk.DeviceTypeID, &tk.PurchaseRef, &tk.ExpiresAt, &tk.UsedAt, &tk.DeviceID, &tk.CreatedAt)
		return &tk, err
	})
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, device.ErrTokenNotFound
		}
		return nil, wrap(err)
	}
	return tok, nil
}

func (t *tx) SaveActivationToken(ctx context.Context, tk *device.ActivationToken) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO activation_tokens (id, digest, device_type_id, purchase_ref, expires_at, used_at, device_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			used_at = EXCLUDED.used_at,
			device_id = EXCLUDED.device_id`,
		tk.ID, tk.Digest, tk.DeviceTypeID, tk.PurchaseRef, tk.ExpiresAt, tk.UsedAt, tk.DeviceID, tk.CreatedAt)
	return wrap(err)
}

const selectScheduledChange = `SELECT id, account_id, target_plan_id, target_interval, strategy, device_ids,
	effective_at, status, note, created_at, resolved_at
	FROM scheduled_changes`

func scanScheduledChange(row pgx.CollectableRow) (*subscription.ScheduledChange, error) {
	var c subscription.ScheduledChange
	err := row.Scan(&c.ID, &c.AccountID, &c.TargetPlanID, &c.TargetInterval, &c.Strategy, &c.DeviceIDs,
		&c.EffectiveAt, &c.Status, &c.Note, &c.CreatedAt, &c.ResolvedAt)
	return &c, err
}

func (t *tx) PendingScheduledChange(ctx context.Context, accountID uuid.UUID) (*subscription.ScheduledChange, error) {
	rows, err := t.q.Query(ctx, selectScheduledChange+`
		WHERE account_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1`+t.forUpdate(), accountID)
	if err != nil {
		return nil, wrap(err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanScheduledChange)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrScheduledChangeNotFound
		}
		return nil, wrap(err)
	}
	return c, nil
}

func (t *tx) SaveScheduledChange(ctx context.Context, c *subscription.ScheduledChange) error {
	ids := c.DeviceIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO scheduled_changes (id, account_id, target_plan_id, target_interval, strategy, device_ids,
			effective_at, status, note, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			note = EXCLUDED.note,
			resolved_at = EXCLUDED.resolved_at`,
		c.ID, c.AccountID, c.TargetPlanID, c.TargetInterval, c.Strategy, ids,
		c.EffectiveAt, c.Status, c.Note, c.CreatedAt, c.ResolvedAt)
	return wrap(err)
}

func (t *tx) AccountRole(ctx context.Context, accountID uuid.UUID) (plan.Tier, error) {
	var tier plan.Tier
	err := t.q.QueryRow(ctx, `SELECT tier FROM account_roles WHERE account_id = $1`, accountID).Scan(&tier)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return plan.TierUser, nil
		}
		return "", wrap(err)
	}
	return tier, nil
}

func (t *tx) SetAccountRole(ctx context.Context, accountID uuid.UUID, tier plan.Tier) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO account_roles (account_id, tier, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id) DO UPDATE SET tier = EXCLUDED.tier, updated_at = EXCLUDED.updated_at`,
		accountID, tier)
	return wrap(err)
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(store.ErrTxFailed, err)
}
