// Package validator validates request DTOs with go-playground/validator.
//
// Field names in errors come from json tags, and each failed rule carries a
// readable message, so a ValidationErrors value can be rendered directly:
//
//	v := validator.New()
//	_ = v.RegisterString("interval", isInterval, "must be month or year")
//	if err := v.Struct(req); err != nil {
//		var verrs validator.ValidationErrors
//		errors.As(err, &verrs) // verrs.Map() -> {"interval": ["must be month or year"]}
//	}
package validator
