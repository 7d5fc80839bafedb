package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/devicecap/pkg/binder"
	"github.com/dmitrymomot/devicecap/pkg/logger"
	"github.com/dmitrymomot/devicecap/pkg/validator"
)

// Classifier maps a domain error to an HTTPError. ok is false when the classifier does not recognize err.
type Classifier func(err error) (httpErr HTTPError, ok bool)

// NewErrorHandler renders errors as JSON. Classifiers run in order after the built-in
// HTTPError, validation and binder checks. Client errors log at WARN, server errors at ERROR.
func NewErrorHandler(log *slog.Logger, classifiers ...Classifier) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("error_handler"))

	return func(ctx Context, err error) {
		status, detail := classify(err, classifiers)

		r := ctx.Request()
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		w := ctx.ResponseWriter()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(JSONResponse{Error: detail})
	}
}

func classify(err error, classifiers []Classifier) (int, *ErrorDetail) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    "validation_error",
			Message: "The request has invalid fields.",
			Details: verrs.Map(),
		}
	}

	var httpErr HTTPError
	found := errors.As(err, &httpErr)
	if !found {
		httpErr, found = bindingError(err)
	}
	for i := 0; !found && i < len(classifiers); i++ {
		httpErr, found = classifiers[i](err)
	}
	if !found {
		return http.StatusInternalServerError, &ErrorDetail{
			Code:    ErrInternalServerError.Key,
			Message: http.StatusText(http.StatusInternalServerError),
		}
	}

	detail := &ErrorDetail{Code: httpErr.Key, Message: http.StatusText(httpErr.Code)}
	if httpErr.Code < http.StatusInternalServerError {
		detail.Message = strings.ReplaceAll(err.Error(), "\n", ": ")
	}
	return httpErr.Code, detail
}

func bindingError(err error) (HTTPError, bool) {
	switch {
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return ErrUnsupportedMedia, true
	case errors.Is(err, binder.ErrBodyTooLarge):
		return NewHTTPError(http.StatusRequestEntityTooLarge, "request_entity_too_large"), true
	case errors.Is(err, binder.ErrInvalidJSON), errors.Is(err, binder.ErrInvalidParam):
		return ErrBadRequest, true
	}
	return HTTPError{}, false
}
