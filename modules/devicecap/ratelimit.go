package devicecap

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/ratelimiter"
)

// ErrTooManyRequests is returned when an account exhausts its activation attempts.
var ErrTooManyRequests = handler.NewHTTPError(http.StatusTooManyRequests, "too_many_requests")

// RateLimit limits requests per account. Requests without an account id pass through.
func RateLimit(l ratelimiter.RateLimiter, errorHandler handler.ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = handler.NewErrorHandler(nil)
	}
	key := func(r *http.Request) string {
		if id := AccountID(r.Context()); id != uuid.Nil {
			return "activate:" + id.String()
		}
		return ""
	}
	deny := func(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result, err error) {
		if err == nil {
			err = ErrTooManyRequests
		}
		errorHandler(handler.NewContext(w, r), err)
	}
	return ratelimiter.Middleware(l, key, deny)
}
