package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/devicecap/pkg/config"
	"github.com/dmitrymomot/devicecap/pkg/httpserver"
	"github.com/dmitrymomot/devicecap/pkg/logger"
	"github.com/dmitrymomot/devicecap/pkg/pg"
	"github.com/dmitrymomot/devicecap/pkg/redis"
	"github.com/dmitrymomot/devicecap/pkg/scheduler"
	"github.com/dmitrymomot/devicecap/pkg/store/postgres"
)

func newServeCmd() *cobra.Command {
	var (
		migrate     bool
		noScheduler bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled change runner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, migrate, !noScheduler)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not apply due scheduled changes from this instance")
	return cmd
}

func serve(ctx context.Context, migrate, withScheduler bool) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	var (
		engine   engineConfig
		httpCfg  httpserver.Config
		pgCfg    pg.Config
		redisCfg redis.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&engine) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&redisCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	in, err := connect(ctx, log, pgCfg, redisCfg, redis.WithLockTTL(engine.LockTTL))
	if err != nil {
		return err
	}
	defer closeQuietly(ctx, log, in)

	if migrate {
		if err := pg.Migrate(ctx, in.pool, pgCfg, postgres.Migrations(), log); err != nil {
			return err
		}
	}

	svc, err := newServices(ctx, log, engine, in.store, in.limits)
	if err != nil {
		return err
	}

	if withScheduler {
		sched, err := scheduler.New(svc.runner, engine.SchedulerSpec,
			scheduler.WithLogger(log),
			scheduler.WithTimeout(engine.SchedulerTimeout),
			scheduler.WithRecorder(svc.metrics),
		)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), engine.SchedulerTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.WarnContext(ctx, "scheduler did not stop cleanly", logger.Error(err))
			}
		}()
	}

	srv := httpserver.New(httpCfg, httpserver.WithLogger(log))
	started := time.Now()
	err = srv.Run(ctx, svc.router(in.checks()))
	log.InfoContext(ctx, "shutting down", slog.Duration("uptime", time.Since(started)))
	return err
}
