package devicecap

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/binder"
	"github.com/dmitrymomot/devicecap/pkg/plan"
)

// CatalogService lists plans.
type CatalogService struct {
	catalog      *plan.Catalog
	errorHandler handler.ErrorHandler
}

func NewCatalogService(catalog *plan.Catalog, errorHandler handler.ErrorHandler) *CatalogService {
	return &CatalogService{catalog: catalog, errorHandler: errorHandler}
}

func (s *CatalogService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/", handler.Wrap(s.list,
		handler.WithBinders[ListPlansRequest](binder.Query()),
		handler.WithErrorHandler[ListPlansRequest](s.errorHandler),
	))
	return r
}

// ListPlansRequest selects hidden plans too when All is set.
type ListPlansRequest struct {
	All bool `query:"all"`
}

func (s *CatalogService) list(_ handler.Context, req ListPlansRequest) handler.Response {
	plans := s.catalog.List()
	if !req.All {
		public := make([]plan.Plan, 0, len(plans))
		for _, p := range plans {
			if p.Public {
				public = append(public, p)
			}
		}
		plans = public
	}
	return handler.JSON(plans, handler.WithMeta(map[string]any{"total": len(plans)}))
}
