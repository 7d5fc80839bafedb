package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/devicecap/pkg/config"
	"github.com/dmitrymomot/devicecap/pkg/pg"
	"github.com/dmitrymomot/devicecap/pkg/store/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log, err := newLogger()
			if err != nil {
				return err
			}
			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}

			pool, err := pg.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pg.Migrate(ctx, pool, cfg, postgres.Migrations(), log); err != nil {
				return err
			}
			log.InfoContext(ctx, "migrations applied")
			return nil
		},
	}
}
