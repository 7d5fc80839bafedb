package plan

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source defines how plans are loaded into the catalog.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory Source holding a copy of the given plans.
// Panics if no plans are provided so the catalog always has at least one valid plan.
func NewInMemSource(plans ...Plan) Source {
	if len(plans) < 1 {
		panic("plan: at least one plan is required")
	}
	m := make(map[string]Plan, len(plans))
	for _, p := range plans {
		m[p.ID] = p
	}
	return &inMemSource{plans: m}
}

// Load returns a copy of all plans. Plan has no reference fields, so a shallow map clone is enough.
func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.plans), nil
}

type yamlSource struct {
	path string
}

// NewYAMLSource reads plans from a YAML file shaped as:
//
//	plans:
//	  - id: basic
//	    name: Basic
//	    device_limit: 2
//	    tier: user
//	    monthly_price: {amount: 900, currency: USD}
//	    yearly_price: {amount: 9000, currency: USD}
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

type yamlCatalog struct {
	Plans []Plan `yaml:"plans"`
}

func (s *yamlSource) Load(ctx context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var doc yamlCatalog
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, fmt.Errorf("parse %s: %w", s.path, err))
	}

	plans := make(map[string]Plan, len(doc.Plans))
	for _, p := range doc.Plans {
		if _, dup := plans[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("duplicate plan id %q", p.ID))
		}
		plans[p.ID] = p
	}
	return plans, nil
}
