package devicecap

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/activation"
	"github.com/dmitrymomot/devicecap/pkg/binder"
	"github.com/dmitrymomot/devicecap/pkg/fleet"
	"github.com/dmitrymomot/devicecap/pkg/ratelimiter"
	"github.com/dmitrymomot/devicecap/pkg/validator"
)

// DeviceService activates devices and runs user device actions.
type DeviceService struct {
	activations  *activation.Service
	fleet        *fleet.Service
	validator    *validator.Validator
	errorHandler handler.ErrorHandler
	limiter      ratelimiter.RateLimiter
}

// DeviceServiceOption configures a DeviceService.
type DeviceServiceOption func(*DeviceService)

// WithActivationLimiter limits activation attempts per account.
func WithActivationLimiter(l ratelimiter.RateLimiter) DeviceServiceOption {
	return func(s *DeviceService) {
		s.limiter = l
	}
}

func NewDeviceService(activations *activation.Service, fleet *fleet.Service, v *validator.Validator, errorHandler handler.ErrorHandler, opts ...DeviceServiceOption) *DeviceService {
	s := &DeviceService{activations: activations, fleet: fleet, validator: v, errorHandler: errorHandler}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DeviceService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", handler.Wrap(s.overview,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))
	var activate chi.Router = r
	if s.limiter != nil {
		activate = r.With(RateLimit(s.limiter, s.errorHandler))
	}
	activate.Post("/activate", handler.Wrap(s.activate,
		handler.WithBinders[ActivateRequest](binder.JSON()),
		handler.WithValidator[ActivateRequest](s.validator),
		handler.WithErrorHandler[ActivateRequest](s.errorHandler),
	))
	r.Post("/suspend", handler.Wrap(s.suspend,
		handler.WithBinders[DevicesRequest](binder.JSON()),
		handler.WithValidator[DevicesRequest](s.validator),
		handler.WithErrorHandler[DevicesRequest](s.errorHandler),
	))
	r.Post("/wake", handler.Wrap(s.wake,
		handler.WithBinders[DevicesRequest](binder.JSON()),
		handler.WithValidator[DevicesRequest](s.validator),
		handler.WithErrorHandler[DevicesRequest](s.errorHandler),
	))
	r.Post("/{id}/disable", handler.Wrap(s.disable,
		handler.WithBinders[DeviceRequest](binder.Path(), binder.JSON()),
		handler.WithValidator[DeviceRequest](s.validator),
		handler.WithErrorHandler[DeviceRequest](s.errorHandler),
	))
	r.Post("/{id}/enable", handler.Wrap(s.enable,
		handler.WithBinders[DeviceRequest](binder.Path()),
		handler.WithValidator[DeviceRequest](s.validator),
		handler.WithErrorHandler[DeviceRequest](s.errorHandler),
	))

	return r
}

func (s *DeviceService) overview(ctx handler.Context, _ struct{}) handler.Response {
	ov, err := s.fleet.Overview(ctx, AccountID(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(ov)
}

type ActivateRequest struct {
	Token        string `json:"token" validate:"required"`
	DeviceTypeID string `json:"device_type_id" validate:"required,max=64"`
	Name         string `json:"name" validate:"max=128"`
}

func (s *DeviceService) activate(ctx handler.Context, req ActivateRequest) handler.Response {
	res, err := s.activations.Activate(ctx, activation.Request{
		AccountID:    AccountID(ctx),
		Code:         req.Token,
		DeviceTypeID: req.DeviceTypeID,
		Name:         req.Name,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res, handler.WithStatus(http.StatusCreated))
}

type DevicesRequest struct {
	DeviceIDs []string `json:"device_ids" validate:"required,min=1,dive,uuid"`
	Reason    string   `json:"reason" validate:"max=64"`
}

func (s *DeviceService) suspend(ctx handler.Context, req DevicesRequest) handler.Response {
	ids, err := parseIDs(req.DeviceIDs)
	if err != nil {
		return handler.Error(err)
	}
	res, err := s.fleet.SuspendDevices(ctx, AccountID(ctx), ids, req.Reason)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}

func (s *DeviceService) wake(ctx handler.Context, req DevicesRequest) handler.Response {
	ids, err := parseIDs(req.DeviceIDs)
	if err != nil {
		return handler.Error(err)
	}
	res, err := s.fleet.WakeDevices(ctx, AccountID(ctx), ids)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}

type DeviceRequest struct {
	ID     string `path:"id" json:"-" validate:"required,uuid"`
	Reason string `json:"reason" validate:"max=64"`
}

func (s *DeviceService) disable(ctx handler.Context, req DeviceRequest) handler.Response {
	res, err := s.fleet.DisableDevice(ctx, AccountID(ctx), uuid.MustParse(req.ID), req.Reason)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}

func (s *DeviceService) enable(ctx handler.Context, req DeviceRequest) handler.Response {
	res, err := s.fleet.EnableDevice(ctx, AccountID(ctx), uuid.MustParse(req.ID))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}
