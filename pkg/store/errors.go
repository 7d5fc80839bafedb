package store

import "errors"

var (
	ErrTxFailed        = errors.New("store.errors.transaction_failed")
	ErrLockNotAcquired = errors.New("store.errors.account_lock_not_acquired")
)
