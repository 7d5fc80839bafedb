// Package handler provides typed HTTP handlers for JSON APIs.
//
// A HandlerFunc receives a Context and an already bound and validated request
// value and returns a Response:
//
//	type previewRequest struct {
//		PlanID   string `query:"plan_id" validate:"required"`
//		Interval string `query:"interval" validate:"required"`
//	}
//
//	h := handler.HandlerFunc[previewRequest](func(ctx handler.Context, req previewRequest) handler.Response {
//		report, err := exec.Preview(ctx, accountID, req.PlanID, plan.Interval(req.Interval))
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(report)
//	})
//
//	r.Get("/plan-change/preview", handler.Wrap(h,
//		handler.WithBinders[previewRequest](binder.Query()),
//		handler.WithValidator[previewRequest](v),
//		handler.WithErrorHandler[previewRequest](errHandler),
//	))
//
// Errors are rendered as {"error": {"code", "message", "details"}}. HTTPError
// carries its own status; ValidationErrors from pkg/validator become 422 with
// per-field details; everything else goes through the configured Classifier
// chain and falls back to 500.
package handler
