package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

type tx struct {
	state *state
}

func (t *tx) CurrentSubscription(_ context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	var current *subscription.Subscription
	for _, s := range t.state.subscriptions {
		if s.AccountID != accountID || s.IsCanceled() {
			continue
		}
		if current == nil || s.CreatedAt.After(current.CreatedAt) {
			current = s
		}
	}
	if current == nil {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return current.Clone(), nil
}

func (t *tx) SaveSubscription(_ context.Context, sub *subscription.Subscription) error {
	t.state.subscriptions[sub.ID] = sub.Clone()
	return nil
}

func (t *tx) CancelOtherSubscriptions(_ context.Context, accountID, keepID uuid.UUID, now time.Time) (int, error) {
	n := 0
	for id, s := range t.state.subscriptions {
		if s.AccountID != accountID || id == keepID || s.IsCanceled() {
			continue
		}
		s.Cancel(now)
		n++
	}
	return n, nil
}

func (t *tx) Devices(_ context.Context, accountID uuid.UUID) ([]*device.Device, error) {
	var devices []*device.Device
	for _, d := range t.state.devices {
		if d.AccountID == accountID {
			devices = append(devices, d.Clone())
		}
	}
	slices.SortFunc(devices, func(a, b *device.Device) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return devices, nil
}

func (t *tx) SaveDevice(_ context.Context, d *device.Device) error {
	t.state.devices[d.ID] = d.Clone()
	return nil
}

func (t *tx) ActivationTokenByDigest(_ context.Context, digest string) (*device.ActivationToken, error) {
	tok, ok := t.state.tokens[digest]
	if !ok {
		return nil, device.ErrTokenNotFound
	}
	return tok.Clone(), nil
}

func (t *tx) SaveActivationToken(_ context.Context, tok *device.ActivationToken) error {
	t.state.tokens[tok.Digest] = tok.Clone()
	return nil
}

func (t *tx) PendingScheduledChange(_ context.Context, accountID uuid.UUID) (*subscription.ScheduledChange, error) {
	var pending *subscription.ScheduledChange
	for _, c := range t.state.changes {
		if c.AccountID != accountID || !c.IsPending() {
			continue
		}
		if pending == nil || c.CreatedAt.After(pending.CreatedAt) {
			pending = c
		}
	}
	if pending == nil {
		return nil, subscription.ErrScheduledChangeNotFound
	}
	return pending.Clone(), nil
}

func (t *tx) SaveScheduledChange(_ context.Context, c *subscription.ScheduledChange) error {
	t.state.changes[c.ID] = c.Clone()
	return nil
}

func (t *tx) AccountRole(_ context.Context, accountID uuid.UUID) (plan.Tier, error) {
	if tier, ok := t.state.roles[accountID]; ok {
		return tier, nil
	}
	return plan.TierUser, nil
}

func (t *tx) SetAccountRole(_ context.Context, accountID uuid.UUID, tier plan.Tier) error {
	t.state.roles[accountID] = tier
	return nil
}
