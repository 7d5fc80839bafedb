package ratelimiter

import "time"

// Result is the outcome of one limit check.
type Result struct {
	Limit     int       // bucket capacity
	Remaining int       // tokens left; negative when the request was denied
	ResetAt   time.Time // next refill
	now       time.Time
}

// Allowed reports whether the request may proceed.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter is how long a denied caller should wait. Zero when allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(r.ResetAt.Sub(r.now), 0)
}

// Config describes a token bucket.
type Config struct {
	Capacity       int           `env:"CAPACITY" envDefault:"10"`        // burst size
	RefillRate     int           `env:"REFILL_RATE" envDefault:"1"`      // tokens added per interval
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"6s"` // time between refills
}

func (c Config) validate() error {
	switch {
	case c.Capacity <= 0:
		return errorf("capacity must be positive, got %d", c.Capacity)
	case c.RefillRate <= 0:
		return errorf("refill rate must be positive, got %d", c.RefillRate)
	case c.RefillInterval <= 0:
		return errorf("refill interval must be positive, got %v", c.RefillInterval)
	}
	return nil
}

// Refill returns the token count and refill time after advancing a bucket to now.
// Stores share it so every backend applies the same arithmetic.
func (c Config) Refill(tokens int, lastRefill, now time.Time) (int, time.Time) {
	intervals := now.Sub(lastRefill) / c.RefillInterval
	if intervals <= 0 {
		return tokens, lastRefill
	}
	// enough intervals to fill the bucket; avoids overflow on long idle periods
	full := time.Duration(c.Capacity/c.RefillRate + 1)
	added := int(min(intervals, full)) * c.RefillRate
	return min(tokens+added, c.Capacity), lastRefill.Add(intervals * c.RefillInterval)
}
