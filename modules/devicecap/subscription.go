package devicecap

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/binder"
	"github.com/dmitrymomot/devicecap/pkg/fleet"
	"github.com/dmitrymomot/devicecap/pkg/validator"
)

// SlotService adds and removes paid device slots.
type SlotService struct {
	fleet        *fleet.Service
	errorHandler handler.ErrorHandler
}

func NewSlotService(fleet *fleet.Service, errorHandler handler.ErrorHandler) *SlotService {
	return &SlotService{fleet: fleet, errorHandler: errorHandler}
}

func (s *SlotService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/", handler.Wrap(s.add, handler.WithErrorHandler[struct{}](s.errorHandler)))
	r.Delete("/", handler.Wrap(s.remove, handler.WithErrorHandler[struct{}](s.errorHandler)))
	return r
}

func (s *SlotService) add(ctx handler.Context, _ struct{}) handler.Response {
	res, err := s.fleet.AddDeviceSlot(ctx, AccountID(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}

func (s *SlotService) remove(ctx handler.Context, _ struct{}) handler.Response {
	res, err := s.fleet.RemoveDeviceSlot(ctx, AccountID(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}

// SubscriptionService cancels subscriptions and records billing results.
type SubscriptionService struct {
	fleet        *fleet.Service
	validator    *validator.Validator
	errorHandler handler.ErrorHandler
}

func NewSubscriptionService(fleet *fleet.Service, v *validator.Validator, errorHandler handler.ErrorHandler) *SubscriptionService {
	return &SubscriptionService{fleet: fleet, validator: v, errorHandler: errorHandler}
}

func (s *SubscriptionService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/cancel", handler.Wrap(s.cancel, handler.WithErrorHandler[struct{}](s.errorHandler)))
	r.Post("/payment", handler.Wrap(s.payment,
		handler.WithBinders[PaymentRequest](binder.JSON()),
		handler.WithValidator[PaymentRequest](s.validator),
		handler.WithErrorHandler[PaymentRequest](s.errorHandler),
	))
	return r
}

func (s *SubscriptionService) cancel(ctx handler.Context, _ struct{}) handler.Response {
	sub, err := s.fleet.CancelSubscription(ctx, AccountID(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sub)
}

// PaymentRequest reports the result of a billing attempt.
type PaymentRequest struct {
	Paid *bool `json:"paid" validate:"required"`
}

func (s *SubscriptionService) payment(ctx handler.Context, req PaymentRequest) handler.Response {
	sub, err := s.fleet.RecordPaymentResult(ctx, AccountID(ctx), *req.Paid)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(sub)
}
