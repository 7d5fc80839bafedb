// Package devicecap exposes subscription plan changes, device activation and
// device fleet actions over HTTP.
//
// Every account-scoped route reads the account from the X-Account-ID header;
// authentication happens in front of this module. Services are mounted with
// Router:
//
//	v := devicecap.NewValidator()
//	eh := devicecap.NewErrorHandler(log)
//
//	r := chi.NewRouter()
//	r.Mount("/", devicecap.Router(devicecap.RouterOptions{
//		ErrorHandler: eh,
//		Plans:        devicecap.NewCatalogService(catalog, eh),
//		PlanChange:   devicecap.NewPlanChangeService(executor, v, eh),
//		Devices:      devicecap.NewDeviceService(activations, fleet, v, eh),
//	}))
//
// Domain errors are mapped to HTTP statuses by Classify: invalid requests are
// 422, missing records 404 and state conflicts 409.
package devicecap
