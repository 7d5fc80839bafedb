package devicecap

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/logger"
)

// AccountHeader carries the id of the account the request acts on.
const AccountHeader = "X-Account-ID"

var (
	ErrMissingAccount = handler.NewHTTPError(http.StatusUnauthorized, "missing_account_id")
	ErrInvalidAccount = handler.NewHTTPError(http.StatusBadRequest, "invalid_account_id")
)

type accountKey struct{}

// WithAccountID stores the account id in ctx.
func WithAccountID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountKey{}, id)
}

// AccountID returns the account id stored by AccountMiddleware, or uuid.Nil.
func AccountID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(accountKey{}).(uuid.UUID)
	return id
}

// AccountMiddleware requires a valid X-Account-ID header and stores it in the request context.
func AccountMiddleware(errorHandler handler.ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = handler.NewErrorHandler(nil)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(AccountHeader)
			if raw == "" {
				errorHandler(handler.NewContext(w, r), ErrMissingAccount)
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				errorHandler(handler.NewContext(w, r), ErrInvalidAccount)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
		})
	}
}

// LoggerExtractor adds the account id to log records of account-scoped requests.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := AccountID(ctx); id != uuid.Nil {
			return logger.AccountID(id), true
		}
		return slog.Attr{}, false
	}
}
