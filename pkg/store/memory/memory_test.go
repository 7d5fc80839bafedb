package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/store/memory"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

var (
	now   = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	basic = plan.Plan{ID: "basic", DeviceLimit: 4, Tier: plan.TierUser}
)

func TestInAccountTx_CommitAndRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	account := uuid.New()

	sub := subscription.New(account, basic, plan.IntervalMonth, now)
	require.NoError(t, s.InAccountTx(ctx, account, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveSubscription(ctx, sub)
	}))

	boom := errors.New("boom")
	err := s.InAccountTx(ctx, account, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.CurrentSubscription(ctx, account)
		require.NoError(t, err)
		cur.AdditionalDeviceSlots = 7
		require.NoError(t, tx.SaveSubscription(ctx, cur))
		require.NoError(t, tx.SaveDevice(ctx, device.New(account, "sensor", "d", now)))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, store.ErrTxFailed)

	require.NoError(t, s.View(ctx, account, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.CurrentSubscription(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, 0, cur.AdditionalDeviceSlots)

		devices, err := tx.Devices(ctx, account)
		require.NoError(t, err)
		assert.Empty(t, devices)
		return nil
	}))
}

func TestInAccountTx_CommitHookFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	account := uuid.New()
	s := memory.New(memory.WithCommitHook(func(uuid.UUID) error {
		return errors.New("disk full")
	}))

	err := s.InAccountTx(ctx, account, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveDevice(ctx, device.New(account, "sensor", "d", now))
	})
	require.ErrorIs(t, err, store.ErrTxFailed)

	require.NoError(t, s.View(ctx, account, func(ctx context.Context, tx store.Tx) error {
		devices, err := tx.Devices(ctx, account)
		require.NoError(t, err)
		assert.Empty(t, devices)
		return nil
	}))
}

func TestInAccountTx_SerializesWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	account := uuid.New()

	require.NoError(t, s.InAccountTx(ctx, account, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveSubscription(ctx, subscription.New(account, basic, plan.IntervalMonth, now))
	}))

	const workers = 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.InAccountTx(ctx, account, func(ctx context.Context, tx store.Tx) error {
				cur, err := tx.CurrentSubscription(ctx, account)
				if err != nil {
					return err
				}
				cur.AdditionalDeviceSlots++
				return tx.SaveSubscription(ctx, cur)
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.View(ctx, account, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.CurrentSubscription(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, workers, cur.AdditionalDeviceSlots)
		return nil
	}))
}

func TestCurrentSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	account := uuid.New()

	require.NoError(t, s.InAccountTx(ctx, account, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.CurrentSubscription(ctx, account)
		require.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)

		old := subscription.New(account, basic, plan.IntervalMonth, now.Add(-time.Hour))
		fresh := subscription.New(account, basic, plan.IntervalYear, now)
		require.NoError(t, tx.SaveSubscription(ctx, old))
		require.NoError(t, tx.SaveSubscription(ctx, fresh))

		n, err := tx.CancelOtherSubscriptions(ctx, account, fresh.ID, now)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		cur, err := tx.CurrentSubscription(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, fresh.ID, cur.ID)
		return nil
	}))
}

func TestDueScheduledChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	a, b := uuid.New(), uuid.New()

	due := &subscription.ScheduledChange{ID: uuid.New(), AccountID: a, TargetPlanID: "basic", EffectiveAt: now.Add(-time.Minute), Status: subscription.ScheduledPending, CreatedAt: now}
	later := &subscription.ScheduledChange{ID: uuid.New(), AccountID: b, TargetPlanID: "basic", EffectiveAt: now.Add(time.Hour), Status: subscription.ScheduledPending, CreatedAt: now}
	require.NoError(t, s.InAccountTx(ctx, a, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.SaveScheduledChange(ctx, due))
		return tx.SaveScheduledChange(ctx, later)
	}))

	got, err := s.DueScheduledChanges(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)

	got, err = s.DueScheduledChanges(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestActivationTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	account := uuid.New()

	tok := &device.ActivationToken{ID: uuid.New(), Digest: "abc", DeviceTypeID: "sensor", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, s.InAccountTx(ctx, account, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.ActivationTokenByDigest(ctx, "abc")
		require.ErrorIs(t, err, device.ErrTokenNotFound)
		return tx.SaveActivationToken(ctx, tok)
	}))

	require.NoError(t, s.View(ctx, account, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.ActivationTokenByDigest(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, tok.ID, got.ID)

		tier, err := tx.AccountRole(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, plan.TierUser, tier)
		return nil
	}))
}
