package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// Store is an in-memory store.Store. Writers are serialized globally, which is
// stricter than the per-account guarantee the port requires. Each transaction
// works on a private copy of the data that replaces the committed state only
// when the callback succeeds.
type Store struct {
	mu         sync.RWMutex
	state      *state
	commitHook func(accountID uuid.UUID) error
}

// Option configures a Store.
type Option func(*Store)

// WithCommitHook installs a function called right before a transaction commits.
// A non-nil return aborts the commit and is reported as store.ErrTxFailed.
func WithCommitHook(fn func(accountID uuid.UUID) error) Option {
	return func(s *Store) {
		s.commitHook = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{state: newState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) InAccountTx(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(store.ErrTxFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &tx{state: work}); err != nil {
		return err
	}

	if s.commitHook != nil {
		if err := s.commitHook(accountID); err != nil {
			return errors.Join(store.ErrTxFailed, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(store.ErrTxFailed, err)
	}

	s.state = work
	return nil
}

func (s *Store) View(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(store.ErrTxFailed, err)
	}

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(ctx, &tx{state: snapshot})
}

func (s *Store) DueScheduledChanges(ctx context.Context, now time.Time, limit int) ([]*subscription.ScheduledChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(store.ErrTxFailed, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*subscription.ScheduledChange
	for _, c := range s.state.changes {
		if c.IsDue(now) {
			due = append(due, c.Clone())
		}
	}
	slices.SortFunc(due, func(a, b *subscription.ScheduledChange) int {
		return cmp.Or(a.EffectiveAt.Compare(b.EffectiveAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

type state struct {
	subscriptions map[uuid.UUID]*subscription.Subscription
	devices       map[uuid.UUID]*device.Device
	tokens        map[string]*device.ActivationToken
	changes       map[uuid.UUID]*subscription.ScheduledChange
	roles         map[uuid.UUID]plan.Tier
}

func newState() *state {
	return &state{
		subscriptions: make(map[uuid.UUID]*subscription.Subscription),
		devices:       make(map[uuid.UUID]*device.Device),
		tokens:        make(map[string]*device.ActivationToken),
		changes:       make(map[uuid.UUID]*subscription.ScheduledChange),
		roles:         make(map[uuid.UUID]plan.Tier),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.subscriptions {
		c.subscriptions[k] = v.Clone()
	}
	for k, v := range s.devices {
		c.devices[k] = v.Clone()
	}
	for k, v := range s.tokens {
		c.tokens[k] = v.Clone()
	}
	for k, v := range s.changes {
		c.changes[k] = v.Clone()
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	return c
}
