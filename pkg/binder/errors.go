package binder

import "errors"

var (
	ErrNotApplicable        = errors.New("binder.errors.not_applicable")
	ErrUnsupportedMediaType = errors.New("binder.errors.unsupported_media_type")
	ErrInvalidJSON          = errors.New("binder.errors.invalid_json")
	ErrBodyTooLarge         = errors.New("binder.errors.body_too_large")
	ErrInvalidParam         = errors.New("binder.errors.invalid_parameter")
)
