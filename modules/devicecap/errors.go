package devicecap

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/activation"
	"github.com/dmitrymomot/devicecap/pkg/fleet"
	"github.com/dmitrymomot/devicecap/pkg/planchange"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// NewErrorHandler renders module errors as JSON using Classify.
func NewErrorHandler(log *slog.Logger) handler.ErrorHandler {
	return handler.NewErrorHandler(log, Classify)
}

// Classify maps domain errors to HTTP errors keyed by the sentinel that caused them.
func Classify(err error) (handler.HTTPError, bool) {
	var code int
	switch {
	case planchange.IsValidationError(err), activation.IsValidationError(err), fleet.IsValidationError(err):
		code = http.StatusUnprocessableEntity
	case fleet.IsNotFoundError(err), errors.Is(err, subscription.ErrScheduledChangeNotFound):
		code = http.StatusNotFound
	case planchange.IsConflictError(err), activation.IsConflictError(err), fleet.IsConflictError(err):
		code = http.StatusConflict
	default:
		return handler.HTTPError{}, false
	}
	key := errorKey(err)
	if key == "" {
		key = strings.ToLower(strings.ReplaceAll(http.StatusText(code), " ", "_"))
	}
	return handler.NewHTTPError(code, key), true
}

// errorKey returns the first sentinel key found walking the error tree depth-first.
func errorKey(err error) string {
	if err == nil {
		return ""
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if key := errorKey(inner); key != "" {
				return key
			}
		}
	case interface{ Unwrap() error }:
		if key := errorKey(e.Unwrap()); key != "" {
			return key
		}
	}
	if msg := err.Error(); strings.Contains(msg, ".errors.") && !strings.ContainsAny(msg, " \n") {
		return msg
	}
	return ""
}
