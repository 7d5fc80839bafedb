package devicecap

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/binder"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/planchange"
	"github.com/dmitrymomot/devicecap/pkg/validator"
)

// PlanChangeService previews, executes and cancels plan changes.
type PlanChangeService struct {
	executor     *planchange.Executor
	validator    *validator.Validator
	errorHandler handler.ErrorHandler
}

func NewPlanChangeService(executor *planchange.Executor, v *validator.Validator, errorHandler handler.ErrorHandler) *PlanChangeService {
	return &PlanChangeService{executor: executor, validator: v, errorHandler: errorHandler}
}

func (s *PlanChangeService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/preview", handler.Wrap(s.preview,
		handler.WithBinders[PreviewRequest](binder.Query()),
		handler.WithValidator[PreviewRequest](s.validator),
		handler.WithErrorHandler[PreviewRequest](s.errorHandler),
	))
	r.Post("/", handler.Wrap(s.execute,
		handler.WithBinders[ChangePlanRequest](binder.JSON()),
		handler.WithValidator[ChangePlanRequest](s.validator),
		handler.WithErrorHandler[ChangePlanRequest](s.errorHandler),
	))
	r.Delete("/scheduled", handler.Wrap(s.cancelScheduled,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))

	return r
}

type PreviewRequest struct {
	PlanID   string `query:"plan_id" json:"plan_id" validate:"required"`
	Interval string `query:"interval" json:"interval" validate:"required,interval"`
}

func (s *PlanChangeService) preview(ctx handler.Context, req PreviewRequest) handler.Response {
	report, err := s.executor.Preview(ctx, AccountID(ctx), req.PlanID, plan.Interval(req.Interval))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(report)
}

type ChangePlanRequest struct {
	PlanID    string   `json:"plan_id" validate:"required"`
	Interval  string   `json:"interval" validate:"required,interval"`
	Strategy  string   `json:"strategy" validate:"required,strategy"`
	DeviceIDs []string `json:"device_ids" validate:"omitempty,dive,uuid"`
}

// execute passes duplicates through so the executor reports them with its own error.
func (s *PlanChangeService) execute(ctx handler.Context, req ChangePlanRequest) handler.Response {
	ids, err := parseIDs(req.DeviceIDs)
	if err != nil {
		return handler.Error(err)
	}
	res, err := s.executor.Execute(ctx, planchange.Request{
		AccountID: AccountID(ctx),
		PlanID:    req.PlanID,
		Interval:  plan.Interval(req.Interval),
		Strategy:  planchange.Strategy(req.Strategy),
		DeviceIDs: ids,
	})
	if err != nil {
		return handler.Error(err)
	}
	status := http.StatusOK
	if res.Status == planchange.StatusScheduled {
		status = http.StatusAccepted
	}
	return handler.JSON(res, handler.WithStatus(status))
}

func (s *PlanChangeService) cancelScheduled(ctx handler.Context, _ struct{}) handler.Response {
	change, err := s.executor.CancelScheduledChange(ctx, AccountID(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(change)
}
