package plan

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

// Catalog is an immutable lookup of plan identity to plan.
// The map is never modified after NewCatalog returns, so reads need no locking.
type Catalog struct {
	plans   map[string]Plan
	ordered []Plan
}

// NewCatalog loads and validates plans from src.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("plan: Source is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(plans) == 0 {
		return nil, errors.Join(ErrInvalidPlanConfiguration, errors.New("catalog is empty"))
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	ordered := make([]Plan, 0, len(plans))
	for _, p := range plans {
		ordered = append(ordered, p)
	}
	slices.SortFunc(ordered, func(a, b Plan) int {
		return cmp.Or(cmp.Compare(a.DeviceLimit, b.DeviceLimit), cmp.Compare(a.ID, b.ID))
	})

	return &Catalog{plans: plans, ordered: ordered}, nil
}

// Get returns the plan with the given id or ErrPlanNotFound.
func (c *Catalog) Get(id string) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, errors.Join(ErrPlanNotFound, fmt.Errorf("plan %q", id))
	}
	return p, nil
}

// List returns all plans ordered by device limit, then id.
func (c *Catalog) List() []Plan {
	return slices.Clone(c.ordered)
}

// validatePlans catches configuration mistakes at startup instead of at the first plan change.
func validatePlans(plans map[string]Plan) error {
	for id, p := range plans {
		switch {
		case p.ID != id:
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", id, p.ID))
		case p.ID == "":
			return errors.Join(ErrInvalidPlanConfiguration, errors.New("plan without id"))
		case p.DeviceLimit < 0:
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative device limit: %d", id, p.DeviceLimit))
		case p.MonthlyPrice.Amount < 0 || p.YearlyPrice.Amount < 0:
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has a negative price", id))
		case !p.Tier.Valid():
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has unknown tier %q", id, p.Tier))
		}
	}
	return nil
}
