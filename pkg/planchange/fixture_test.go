package planchange_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/planchange"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/store/memory"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

var start = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

var (
	basicPlan = plan.Plan{
		ID: "basic", Name: "Basic", DeviceLimit: 2, Tier: plan.TierUser, Public: true,
		MonthlyPrice: plan.Cents(1000, "USD"), YearlyPrice: plan.Cents(10000, "USD"),
	}
	standardPlan = plan.Plan{
		ID: "standard", Name: "Standard", DeviceLimit: 4, Tier: plan.TierPro, Public: true,
		MonthlyPrice: plan.Cents(2000, "USD"), YearlyPrice: plan.Cents(20000, "USD"),
	}
	homePlan = plan.Plan{
		ID: "home", Name: "Home", DeviceLimit: 4, Tier: plan.TierUser, Public: true,
		MonthlyPrice: plan.Cents(1500, "USD"), YearlyPrice: plan.Cents(15000, "USD"),
	}
	proPlan = plan.Plan{
		ID: "pro", Name: "Pro", DeviceLimit: 10, Tier: plan.TierPro, Public: true,
		MonthlyPrice: plan.Cents(5000, "USD"), YearlyPrice: plan.Cents(50000, "USD"),
	}
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) PlanChange(strategy, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, strategy+":"+status)
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	exec     *planchange.Executor
	recorder *recorder
	account  uuid.UUID

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, storeOpts ...memory.Option) *fixture {
	t.Helper()

	catalog, err := plan.NewCatalog(context.Background(),
		plan.NewInMemSource(basicPlan, standardPlan, homePlan, proPlan))
	require.NoError(t, err)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memory.New(storeOpts...),
		recorder: &recorder{},
		account:  uuid.New(),
		now:      start,
	}
	f.exec = planchange.NewExecutor(f.store, catalog,
		planchange.WithClock(f.clock),
		planchange.WithExtraDevicePrice(plan.Cents(500, "USD")),
		planchange.WithRecorder(f.recorder),
	)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) subscribe(p plan.Plan, interval plan.Interval, slots int) *subscription.Subscription {
	f.t.Helper()
	sub := subscription.New(f.account, p, interval, start.Add(-10*24*time.Hour))
	sub.AdditionalDeviceSlots = slots
	f.write(func(ctx context.Context, tx store.Tx) error {
		return tx.SaveSubscription(ctx, sub)
	})
	return sub
}

// addDevice stores an active device; lastSeen is relative to start, nil means never connected.
func (f *fixture) addDevice(name string, createdAgo time.Duration, lastSeen *time.Duration) *device.Device {
	f.t.Helper()
	created := start.Add(-createdAgo)
	d := device.New(f.account, "sensor", name, created)
	require.NoError(f.t, d.Activate(f.ctx, created))
	if lastSeen != nil {
		ts := start.Add(-*lastSeen)
		d.LastConnection = &ts
	}
	f.write(func(ctx context.Context, tx store.Tx) error {
		return tx.SaveDevice(ctx, d)
	})
	return d
}

func (f *fixture) suspendDevice(d *device.Device, reason string, at time.Time) {
	f.t.Helper()
	require.NoError(f.t, d.Suspend(f.ctx, reason, at))
	f.write(func(ctx context.Context, tx store.Tx) error {
		return tx.SaveDevice(ctx, d)
	})
}

func (f *fixture) write(fn func(ctx context.Context, tx store.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.store.InAccountTx(f.ctx, f.account, fn))
}

func (f *fixture) devices() map[uuid.UUID]*device.Device {
	f.t.Helper()
	out := map[uuid.UUID]*device.Device{}
	require.NoError(f.t, f.store.View(f.ctx, f.account, func(ctx context.Context, tx store.Tx) error {
		list, err := tx.Devices(ctx, f.account)
		for _, d := range list {
			out[d.ID] = d
		}
		return err
	}))
	return out
}

func (f *fixture) countState(state device.State) int {
	n := 0
	for _, d := range f.devices() {
		if d.State == state {
			n++
		}
	}
	return n
}

func (f *fixture) subscription() *subscription.Subscription {
	f.t.Helper()
	var sub *subscription.Subscription
	require.NoError(f.t, f.store.View(f.ctx, f.account, func(ctx context.Context, tx store.Tx) error {
		var err error
		sub, err = tx.CurrentSubscription(ctx, f.account)
		return err
	}))
	return sub
}

func (f *fixture) role() plan.Tier {
	f.t.Helper()
	var tier plan.Tier
	require.NoError(f.t, f.store.View(f.ctx, f.account, func(ctx context.Context, tx store.Tx) error {
		var err error
		tier, err = tx.AccountRole(ctx, f.account)
		return err
	}))
	return tier
}

// assertWithinCapacity checks operational <= effective limit against the stored state.
func (f *fixture) assertWithinCapacity(limitOf func(string) int) {
	f.t.Helper()
	sub := f.subscription()
	limit := limitOf(sub.PlanID) + sub.AdditionalDeviceSlots
	require.LessOrEqual(f.t, f.countState(device.StateActive), limit)
}

func planLimit(id string) int {
	for _, p := range []plan.Plan{basicPlan, standardPlan, homePlan, proPlan} {
		if p.ID == id {
			return p.DeviceLimit
		}
	}
	return 0
}

func dur(d time.Duration) *time.Duration { return &d }

func hourN(n int) time.Duration { return time.Duration(n) * hour }

var errCommit = errors.New("commit refused")

// memoryCommitHook makes commits fail while *failing is true.
func memoryCommitHook(failing *bool) memory.Option {
	return memory.WithCommitHook(func(uuid.UUID) error {
		if *failing {
			return errCommit
		}
		return nil
	})
}

const (
	hour = time.Hour
	day  = 24 * time.Hour
)
