package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/devicecap/pkg/config"
	"github.com/dmitrymomot/devicecap/pkg/pg"
	"github.com/dmitrymomot/devicecap/pkg/redis"
	"github.com/dmitrymomot/devicecap/pkg/scheduler"
)

func newApplyDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply-due",
		Short: "Apply scheduled plan changes that are due, once",
		Long:  "apply-due runs one pass of the scheduled change runner, for use from an external scheduler.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log, err := newLogger()
			if err != nil {
				return err
			}
			var (
				engine   engineConfig
				pgCfg    pg.Config
				redisCfg redis.Config
			)
			if err := config.Load(&engine); err != nil {
				return err
			}
			if err := config.Load(&pgCfg); err != nil {
				return err
			}
			if err := config.Load(&redisCfg); err != nil {
				return err
			}

			in, err := connect(ctx, log, pgCfg, redisCfg, redis.WithLockTTL(engine.LockTTL))
			if err != nil {
				return err
			}
			defer closeQuietly(ctx, log, in)

			svc, err := newServices(ctx, log, engine, in.store, in.limits)
			if err != nil {
				return err
			}
			sched, err := scheduler.New(svc.runner, engine.SchedulerSpec,
				scheduler.WithLogger(log),
				scheduler.WithTimeout(engine.SchedulerTimeout),
			)
			if err != nil {
				return err
			}

			applied, err := sched.RunOnce(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "applied %d scheduled changes\n", applied)
			return err
		},
	}
}
