package devicecap

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/devicecap/handler"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount.
// Each service is optional and will only be mounted if provided.
type RouterOptions struct {
	// Middlewares run for every route, including health and metrics.
	Middlewares []func(http.Handler) http.Handler
	// ErrorHandler renders account header failures.
	ErrorHandler handler.ErrorHandler

	Health  http.Handler
	Metrics http.Handler

	// Plans lists the public catalog and needs no account.
	Plans Mountable

	// Account-scoped services
	PlanChange   Mountable
	Devices      Mountable
	Slots        Mountable
	Subscription Mountable
	Tokens       Mountable
}

// Router creates the module router.
//
//	/healthz, /metrics, /plans                  public
//	/plan-change, /devices, /slots,
//	/subscription, /activation-tokens           require X-Account-ID
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(opts.Middlewares...)

	if opts.Health != nil {
		r.Method(http.MethodGet, "/healthz", opts.Health)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.Plans != nil {
		r.Mount("/plans", opts.Plans.Handle())
	}

	r.Group(func(acct chi.Router) {
		acct.Use(AccountMiddleware(opts.ErrorHandler))

		mount(acct, "/plan-change", opts.PlanChange)
		mount(acct, "/devices", opts.Devices)
		mount(acct, "/slots", opts.Slots)
		mount(acct, "/subscription", opts.Subscription)
		mount(acct, "/activation-tokens", opts.Tokens)
	})

	return r
}

func mount(r chi.Router, pattern string, m Mountable) {
	if m != nil {
		r.Mount(pattern, m.Handle())
	}
}
