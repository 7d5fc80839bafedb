package ratelimiter

import (
	"net/http"
	"strconv"
)

// KeyFunc extracts the limit key from a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// DenyFunc writes the response for a rejected request. err is set when the
// limiter itself failed; otherwise res describes the exhausted bucket.
type DenyFunc func(w http.ResponseWriter, r *http.Request, res *Result, err error)

// Middleware consumes one token per request and sets X-RateLimit-* headers.
// A nil deny responds with a plain 429 or 500.
func Middleware(l RateLimiter, key KeyFunc, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = defaultDeny
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), k)
			if err != nil {
				deny(w, r, nil, err)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				secs := int(res.RetryAfter().Seconds() + 0.999)
				h.Set("Retry-After", strconv.Itoa(max(secs, 1)))
				deny(w, r, res, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, _ *Result, err error) {
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}
