package qrcode

import "errors"

var (
	ErrEmptyContent = errors.New("qrcode.errors.empty_content")
	ErrInvalidSize  = errors.New("qrcode.errors.invalid_size")
	ErrRenderFailed = errors.New("qrcode.errors.render_failed")
)
