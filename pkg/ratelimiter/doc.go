// Package ratelimiter is a token bucket limiter with pluggable storage.
//
// A Bucket holds Capacity tokens and regains RefillRate tokens every
// RefillInterval. A request is allowed while enough tokens remain; denied
// requests do not consume tokens. MemoryStore keeps buckets in process;
// pkg/redis provides a Store shared by all instances.
//
//	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity: 10, RefillRate: 1, RefillInterval: 6 * time.Second,
//	})
//	r.With(ratelimiter.Middleware(b, keyFn, deny)).Post("/activate", h)
package ratelimiter
