package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// Store is a PostgreSQL implementation of store.Store.
// Account writers are serialized with a transaction-scoped advisory lock keyed by the account id,
// and rows that other accounts may touch (activation tokens) are read with FOR UPDATE.
// View runs a read-only snapshot without row locks.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New creates a Store on top of an open pool.
func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("postgres store: pool is required")
	}
	return &Store{pool: pool}
}

func (s *Store) InAccountTx(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, ptx pgx.Tx) error {
		if _, err := ptx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, accountID.String()); err != nil {
			return errors.Join(store.ErrLockNotAcquired, err)
		}
		return fn(ctx, &tx{q: ptx, locking: true})
	}, true)
}

func (s *Store) View(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context, tx store.Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return s.run(ctx, opts, func(ctx context.Context, ptx pgx.Tx) error {
		return fn(ctx, &tx{q: ptx})
	}, false)
}

func (s *Store) DueScheduledChanges(ctx context.Context, now time.Time, limit int) ([]*subscription.ScheduledChange, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, selectScheduledChange+`
		WHERE status = 'pending' AND effective_at <= $1
		ORDER BY effective_at, id
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, errors.Join(store.ErrTxFailed, err)
	}
	changes, err := pgx.CollectRows(rows, scanScheduledChange)
	if err != nil {
		return nil, errors.Join(store.ErrTxFailed, err)
	}
	return changes, nil
}

// run begins a transaction, calls fn and commits when commit is true and fn succeeded.
// Errors from fn pass through unchanged.
func (s *Store) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, ptx pgx.Tx) error, commit bool) (err error) {
	ptx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return errors.Join(store.ErrTxFailed, err)
	}
	defer func() {
		// Rollback after a successful commit is a no-op returning pgx.ErrTxClosed.
		_ = ptx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(ctx, ptx); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := ptx.Commit(ctx); err != nil {
		return errors.Join(store.ErrTxFailed, err)
	}
	return nil
}
