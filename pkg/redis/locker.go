package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token,
// so a lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-instance Redis mutex: SET NX PX to acquire, a compare-and-delete script to release.
type Locker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryEvery time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithLockTTL bounds how long a crashed holder can keep the lock.
func WithLockTTL(ttl time.Duration) LockerOption {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetryInterval sets the polling interval while waiting for a held lock.
func WithRetryInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.retryEvery = d
		}
	}
}

// NewLocker creates a Locker on top of a connected client.
func NewLocker(client redis.UniversalClient, opts ...LockerOption) *Locker {
	if client == nil {
		panic("redis locker: client is required")
	}
	l := &Locker{
		client:     client,
		ttl:        30 * time.Second,
		retryEvery: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until key is acquired or ctx is done.
// The returned function releases the lock if it is still ours.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Join(ErrLockFailed, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockFailed, ctx.Err())
		case <-time.After(l.retryEvery):
		}
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return errors.Join(ErrLockFailed, err)
		}
		return nil
	}, nil
}
