package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/devicecap/pkg/ratelimiter"
)

// consumeScript mirrors ratelimiter.Config.Refill so both stores agree.
// ARGV: capacity, refill rate, interval ms, now ms, tokens requested, ttl ms.
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local n = tonumber(ARGV[5])

local state = redis.call("HMGET", KEYS[1], "tokens", "refill")
local tokens = tonumber(state[1])
local refill = tonumber(state[2])
if tokens == nil or refill == nil then
	tokens = capacity
	refill = now
end

local intervals = math.floor((now - refill) / interval)
if intervals > 0 then
	local full = math.floor(capacity / rate) + 1
	tokens = math.min(tokens + math.min(intervals, full) * rate, capacity)
	refill = refill + intervals * interval
end

local remaining
if tokens < n then
	remaining = tokens - n
else
	tokens = tokens - n
	remaining = tokens
end

redis.call("HSET", KEYS[1], "tokens", tokens, "refill", refill)
redis.call("PEXPIRE", KEYS[1], ARGV[6])
return {remaining, refill + interval}
`)

const rateLimitKeyPrefix = "devicecap:ratelimit:"

var _ ratelimiter.Store = (*RateLimitStore)(nil)

// RateLimitStore keeps token buckets in Redis hashes so every instance shares them.
type RateLimitStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRateLimitStore creates a ratelimiter.Store on a connected client.
func NewRateLimitStore(client redis.UniversalClient) *RateLimitStore {
	if client == nil {
		panic("redis rate limit store: client is required")
	}
	return &RateLimitStore{client: client, prefix: rateLimitKeyPrefix}
}

func (s *RateLimitStore) ConsumeTokens(ctx context.Context, key string, n int, cfg ratelimiter.Config, now time.Time) (int, time.Time, error) {
	interval := cfg.RefillInterval.Milliseconds()
	if interval <= 0 {
		interval = 1
	}
	// long enough for an idle bucket to refill completely
	ttl := interval * int64(cfg.Capacity/cfg.RefillRate+2)

	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key},
		cfg.Capacity, cfg.RefillRate, interval, now.UnixMilli(), n, ttl,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ratelimiter.ErrStoreUnavailable, ErrRateLimitFailed, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.Join(ratelimiter.ErrStoreUnavailable, ErrRateLimitFailed)
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (s *RateLimitStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ratelimiter.ErrStoreUnavailable, ErrRateLimitFailed, err)
	}
	return nil
}
