// Package binder fills request DTOs from HTTP requests.
//
// JSON decodes a strict application/json body. Query and Path copy string values
// into fields tagged `query:"name"` or `path:"name"`; untagged fields are left
// alone, so one DTO can combine a JSON body with path and query parameters:
//
//	type disableRequest struct {
//		DeviceID string `path:"id" json:"-"`
//		Reason   string `json:"reason"`
//	}
//
// A binder that has nothing to read returns ErrNotApplicable, which callers
// chaining several binders skip.
package binder
