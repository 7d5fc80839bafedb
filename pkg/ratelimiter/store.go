package ratelimiter

import (
	"context"
	"time"
)

// Store persists bucket state.
type Store interface {
	// ConsumeTokens refills the bucket to now, then takes n tokens if available.
	// It returns the tokens left, or the shortfall as a negative number without
	// taking anything. n == 0 only reads.
	ConsumeTokens(ctx context.Context, key string, n int, cfg Config, now time.Time) (remaining int, resetAt time.Time, err error)

	// Reset forgets the bucket for key.
	Reset(ctx context.Context, key string) error
}
