package devicecap

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/planchange"
	"github.com/dmitrymomot/devicecap/pkg/validator"
)

// NewValidator returns a validator with the module's billing interval and strategy rules.
func NewValidator() *validator.Validator {
	v := validator.New()
	rules := []struct {
		tag     string
		ok      func(string) bool
		message string
	}{
		{"interval", func(s string) bool { return plan.Interval(s).Valid() }, "must be one of [month year]"},
		{"strategy", func(s string) bool { return planchange.Strategy(s).Valid() }, "must be a known plan change strategy"},
	}
	for _, rule := range rules {
		if err := v.RegisterString(rule.tag, rule.ok, rule.message); err != nil {
			panic(fmt.Sprintf("devicecap: register %s rule: %v", rule.tag, err))
		}
	}
	return v
}

// parseIDs converts validated string ids.
func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, handler.ErrBadRequest
		}
		ids = append(ids, id)
	}
	return ids, nil
}
