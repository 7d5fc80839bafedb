package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Locker acquires a named lock that is held across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// LockKeyPrefix namespaces account lock keys.
const LockKeyPrefix = "devicecap:account:"

type lockedStore struct {
	Store
	locker Locker
}

// WithLocker wraps a Store so that every InAccountTx additionally holds a distributed
// lock for the account. Reads through View are not locked.
func WithLocker(s Store, l Locker) Store {
	if s == nil {
		panic("store: nil store")
	}
	if l == nil {
		return s
	}
	return &lockedStore{Store: s, locker: l}
}

func (s *lockedStore) InAccountTx(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, tx Tx) error) error {
	unlock, err := s.locker.Lock(ctx, LockKeyPrefix+accountID.String())
	if err != nil {
		return errors.Join(ErrLockNotAcquired, err)
	}
	// The transaction outcome is already decided when unlocking; a failed release expires with the lock TTL.
	defer func() { _ = unlock(context.WithoutCancel(ctx)) }()

	return s.Store.InAccountTx(ctx, accountID, fn)
}
