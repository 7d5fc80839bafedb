package devicecap

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/activation"
	"github.com/dmitrymomot/devicecap/pkg/binder"
	"github.com/dmitrymomot/devicecap/pkg/qrcode"
	"github.com/dmitrymomot/devicecap/pkg/validator"
)

// TokenService issues activation tokens and renders them as QR codes.
type TokenService struct {
	activations  *activation.Service
	validator    *validator.Validator
	errorHandler handler.ErrorHandler
}

func NewTokenService(activations *activation.Service, v *validator.Validator, errorHandler handler.ErrorHandler) *TokenService {
	return &TokenService{activations: activations, validator: v, errorHandler: errorHandler}
}

func (s *TokenService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/", handler.Wrap(s.issue,
		handler.WithBinders[IssueTokenRequest](binder.JSON()),
		handler.WithValidator[IssueTokenRequest](s.validator),
		handler.WithErrorHandler[IssueTokenRequest](s.errorHandler),
	))
	r.Get("/qr", handler.Wrap(s.qr,
		handler.WithBinders[QRRequest](binder.Query()),
		handler.WithValidator[QRRequest](s.validator),
		handler.WithErrorHandler[QRRequest](s.errorHandler),
	))
	return r
}

type IssueTokenRequest struct {
	DeviceTypeID string `json:"device_type_id" validate:"required,max=64"`
	PurchaseRef  string `json:"purchase_ref" validate:"max=128"`
}

// issue returns the plaintext code once; only its digest is stored.
func (s *TokenService) issue(ctx handler.Context, req IssueTokenRequest) handler.Response {
	issued, err := s.activations.Issue(ctx, AccountID(ctx), req.DeviceTypeID, req.PurchaseRef)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(issued, handler.WithStatus(http.StatusCreated))
}

type QRRequest struct {
	Code   string `query:"code" json:"code" validate:"required"`
	Size   int    `query:"size" json:"size" validate:"omitempty,gte=64,lte=1024"`
	Format string `query:"format" json:"format" validate:"omitempty,oneof=png data_uri"`
}

// qr responds with the PNG itself, or with {"data_uri": ...} for format=data_uri.
func (s *TokenService) qr(_ handler.Context, req QRRequest) handler.Response {
	png, err := s.activations.QRCode(req.Code, req.Size)
	if err != nil {
		return handler.Error(err)
	}
	if req.Format == "data_uri" {
		return handler.JSON(map[string]string{"data_uri": qrcode.DataURI(png)})
	}
	return handler.Blob("image/png", png)
}
