package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/devicecap/modules/devicecap"
	"github.com/dmitrymomot/devicecap/pkg/activation"
	"github.com/dmitrymomot/devicecap/pkg/fleet"
	"github.com/dmitrymomot/devicecap/pkg/logger"
	"github.com/dmitrymomot/devicecap/pkg/metrics"
	"github.com/dmitrymomot/devicecap/pkg/pg"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/planchange"
	"github.com/dmitrymomot/devicecap/pkg/ratelimiter"
	"github.com/dmitrymomot/devicecap/pkg/redis"
	"github.com/dmitrymomot/devicecap/pkg/requestid"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/store/postgres"
)

// infra holds the external connections. redis is nil when REDIS_URL is empty
// and rate limits then live in process memory.
type infra struct {
	pool   *pgxpool.Pool
	redis  *goredis.Client
	store  store.Store
	limits ratelimiter.Store
}

func connect(ctx context.Context, log *slog.Logger, pgCfg pg.Config, redisCfg redis.Config, lockerOpts ...redis.LockerOption) (*infra, error) {
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	in := &infra{pool: pool, store: postgres.New(pool)}

	if !redisCfg.Enabled() {
		in.limits = ratelimiter.NewMemoryStore()
		return in, nil
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	in.redis = client
	in.store = store.WithLocker(in.store, redis.NewLocker(client, lockerOpts...))
	in.limits = redis.NewRateLimitStore(client)
	log.InfoContext(ctx, "redis account locks and rate limits enabled")
	return in, nil
}

func (in *infra) checks() map[string]devicecap.Check {
	checks := map[string]devicecap.Check{"postgres": pg.Healthcheck(in.pool)}
	if in.redis != nil {
		checks["redis"] = redis.Healthcheck(in.redis)
	}
	return checks
}

func (in *infra) Close() error {
	if ms, ok := in.limits.(*ratelimiter.MemoryStore); ok {
		ms.Close()
	}
	var err error
	if in.redis != nil {
		err = in.redis.Close()
	}
	in.pool.Close()
	return err
}

// services is the domain layer wired to one store.
type services struct {
	log         *slog.Logger
	catalog     *plan.Catalog
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	executor    *planchange.Executor
	runner      *planchange.Runner
	activations *activation.Service
	fleet       *fleet.Service
	limiter     *ratelimiter.Bucket
}

func newServices(ctx context.Context, log *slog.Logger, cfg engineConfig, st store.Store, limits ratelimiter.Store) (*services, error) {
	src := plan.NewInMemSource(defaultPlans(cfg.Currency)...)
	if cfg.PlansFile != "" {
		src = plan.NewYAMLSource(cfg.PlansFile)
	}
	catalog, err := plan.NewCatalog(ctx, src)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	executor := planchange.NewExecutor(st, catalog,
		planchange.WithLogger(log.With(logger.Component("planchange"))),
		planchange.WithExtraDevicePrice(cfg.extraDevicePrice()),
		planchange.WithFallbackLimit(cfg.FallbackDeviceLimit),
		planchange.WithRecorder(m),
	)
	activations, err := activation.NewService(st, catalog, cfg.TokenSecret,
		activation.WithLogger(log.With(logger.Component("activation"))),
		activation.WithTTL(cfg.TokenTTL),
		activation.WithFallbackLimit(cfg.FallbackDeviceLimit),
		activation.WithRecorder(m),
	)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimiter.NewBucket(limits, cfg.ActivationRate)
	if err != nil {
		return nil, err
	}
	fleetSvc := fleet.NewService(st, catalog,
		fleet.WithLogger(log.With(logger.Component("fleet"))),
		fleet.WithFallbackLimit(cfg.FallbackDeviceLimit),
		fleet.WithRecorder(m),
	)

	return &services{
		log:         log,
		catalog:     catalog,
		metrics:     m,
		registry:    reg,
		executor:    executor,
		runner:      planchange.NewRunner(executor, planchange.WithBatchSize(cfg.SchedulerBatchSize)),
		activations: activations,
		fleet:       fleetSvc,
		limiter:     limiter,
	}, nil
}

func (s *services) router(checks map[string]devicecap.Check) http.Handler {
	v := devicecap.NewValidator()
	eh := devicecap.NewErrorHandler(s.log)

	return devicecap.Router(devicecap.RouterOptions{
		Middlewares:  []func(http.Handler) http.Handler{requestid.Middleware, s.metrics.Middleware},
		ErrorHandler: eh,
		Health:       devicecap.NewHealthHandler(s.log, 0, checks),
		Metrics:      metrics.HandlerFor(s.registry),
		Plans:        devicecap.NewCatalogService(s.catalog, eh),
		PlanChange:   devicecap.NewPlanChangeService(s.executor, v, eh),
		Devices:      devicecap.NewDeviceService(s.activations, s.fleet, v, eh, devicecap.WithActivationLimiter(s.limiter)),
		Slots:        devicecap.NewSlotService(s.fleet, eh),
		Subscription: devicecap.NewSubscriptionService(s.fleet, v, eh),
		Tokens:       devicecap.NewTokenService(s.activations, v, eh),
	})
}

func closeQuietly(ctx context.Context, log *slog.Logger, in *infra) {
	if err := in.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		log.WarnContext(ctx, "closing connections", logger.Error(err))
	}
}
