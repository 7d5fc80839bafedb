package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrLockFailed                   = errors.New("redis lock operation failed")
	ErrRateLimitFailed              = errors.New("redis rate limit operation failed")
)
