package plan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/pkg/plan"
)

func testPlans() []plan.Plan {
	return []plan.Plan{
		{
			ID:           "pro",
			Name:         "Pro",
			DeviceLimit:  10,
			MonthlyPrice: plan.Cents(2900, "USD"),
			YearlyPrice:  plan.Cents(29000, "USD"),
			Tier:         plan.TierPro,
		},
		{
			ID:           "basic",
			Name:         "Basic",
			DeviceLimit:  2,
			MonthlyPrice: plan.Cents(900, "USD"),
			YearlyPrice:  plan.Cents(9000, "USD"),
			Tier:         plan.TierUser,
		},
	}
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(testPlans()...))
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		t.Parallel()

		p, err := catalog.Get("basic")
		require.NoError(t, err)
		assert.Equal(t, 2, p.DeviceLimit)

		_, err = catalog.Get("missing")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("list ordered by device limit", func(t *testing.T) {
		t.Parallel()

		list := catalog.List()
		require.Len(t, list, 2)
		assert.Equal(t, "basic", list[0].ID)
		assert.Equal(t, "pro", list[1].ID)
	})
}

func TestCatalogValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		plan plan.Plan
	}{
		{"negative limit", plan.Plan{ID: "x", DeviceLimit: -1, Tier: plan.TierUser}},
		{"negative price", plan.Plan{ID: "x", MonthlyPrice: plan.Cents(-1, "USD"), Tier: plan.TierUser}},
		{"unknown tier", plan.Plan{ID: "x", Tier: "gold"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(tt.plan))
			assert.ErrorIs(t, err, plan.ErrInvalidPlanConfiguration)
		})
	}
}

func TestMonthlyEquivalent(t *testing.T) {
	t.Parallel()

	p := plan.Plan{
		MonthlyPrice: plan.Cents(1000, "USD"),
		YearlyPrice:  plan.Cents(10000, "USD"),
	}

	assert.Equal(t, "10", p.MonthlyEquivalent(plan.IntervalMonth).String())
	assert.Equal(t, "8.33", p.MonthlyEquivalent(plan.IntervalYear).String())
	assert.Equal(t, int64(10000), p.Price(plan.IntervalYear).Amount)
}

func TestParseInterval(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]plan.Interval{
		"month": plan.IntervalMonth, "monthly": plan.IntervalMonth,
		"year": plan.IntervalYear, "annual": plan.IntervalYear,
	} {
		got, err := plan.ParseInterval(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := plan.ParseInterval("weekly")
	assert.ErrorIs(t, err, plan.ErrInvalidInterval)
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plans.yaml")
	content := `plans:
  - id: basic
    name: Basic
    device_limit: 2
    tier: user
    monthly_price: {amount: 900, currency: USD}
    yearly_price: {amount: 9000, currency: USD}
  - id: pro
    name: Pro
    device_limit: 4
    tier: pro
    monthly_price: {amount: 1900, currency: USD}
    yearly_price: {amount: 19000, currency: USD}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	catalog, err := plan.NewCatalog(context.Background(), plan.NewYAMLSource(path))
	require.NoError(t, err)

	pro, err := catalog.Get("pro")
	require.NoError(t, err)
	assert.Equal(t, 4, pro.DeviceLimit)
	assert.Equal(t, plan.TierPro, pro.Tier)
	assert.Equal(t, int64(1900), pro.MonthlyPrice.Amount)

	_, err = plan.NewCatalog(context.Background(), plan.NewYAMLSource(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.ErrorIs(t, err, plan.ErrFailedToLoadPlans)
}
