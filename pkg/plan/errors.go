package plan

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan.errors.plan_not_found")
	ErrInvalidPlanConfiguration = errors.New("plan.errors.invalid_plan_configuration")
	ErrFailedToLoadPlans        = errors.New("plan.errors.failed_to_load_plans")
	ErrInvalidInterval          = errors.New("plan.errors.invalid_interval")
)
