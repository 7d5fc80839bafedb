package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/pkg/config"
	"github.com/dmitrymomot/devicecap/pkg/logger"
	"github.com/dmitrymomot/devicecap/pkg/pg"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/ratelimiter"
	"github.com/dmitrymomot/devicecap/pkg/store/memory"
)

func testEngine() engineConfig {
	return engineConfig{
		Currency:              "USD",
		ExtraDevicePriceCents: 500,
		FallbackDeviceLimit:   1,
		TokenSecret:           "test-secret",
		TokenTTL:              time.Hour,
		SchedulerSpec:         "@every 1m",
		SchedulerTimeout:      time.Minute,
		SchedulerBatchSize:    10,
		ActivationRate:        ratelimiter.Config{Capacity: 5, RefillRate: 1, RefillInterval: time.Minute},
	}
}

func testLimits(t *testing.T) *ratelimiter.MemoryStore {
	t.Helper()
	ms := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(ms.Close)
	return ms
}

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestServicesRouter(t *testing.T) {
	t.Parallel()
	svc, err := newServices(context.Background(), logger.Discard(), testEngine(), memory.New(), testLimits(t))
	require.NoError(t, err)
	h := svc.router(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []plan.Plan `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, len(defaultPlans("USD")))
	assert.Equal(t, "basic", body.Data[0].ID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServicesYAMLCatalog(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`plans:
  - id: starter
    name: Starter
    device_limit: 2
    tier: user
    public: true
    monthly_price: {amount: 500, currency: EUR}
    yearly_price: {amount: 5000, currency: EUR}
`), 0o600))

	cfg := testEngine()
	cfg.PlansFile = path
	svc, err := newServices(context.Background(), logger.Discard(), cfg, memory.New(), testLimits(t))
	require.NoError(t, err)

	p, err := svc.catalog.Get("starter")
	require.NoError(t, err)
	assert.Equal(t, 2, p.DeviceLimit)

	cfg.PlansFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = newServices(context.Background(), logger.Discard(), cfg, memory.New(), testLimits(t))
	require.ErrorIs(t, err, plan.ErrFailedToLoadPlans)
}

func TestRootCommand(t *testing.T) {
	t.Parallel()
	out, err := executeCLI(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "migrate", "apply-due"} {
		assert.Contains(t, out, name)
	}
}

func TestMigrateWithoutDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PG_CONN_URL", "")

	_, err := executeCLI(t, "migrate")
	require.ErrorIs(t, err, pg.ErrEmptyConnectionString)
}

func TestApplyDueRequiresTokenSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PG_CONN_URL", "")
	t.Setenv("ACTIVATION_TOKEN_SECRET", "")
	require.NoError(t, os.Unsetenv("ACTIVATION_TOKEN_SECRET"))

	_, err := executeCLI(t, "apply-due")
	require.ErrorIs(t, err, config.ErrParsingConfig)
}
