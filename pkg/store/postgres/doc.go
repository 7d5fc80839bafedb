// Package postgres implements store.Store on PostgreSQL through pgx/v5.
//
// Apply the embedded schema before use:
//
//	pool, _ := pg.Connect(ctx, cfg)
//	if err := pg.Migrate(ctx, pool, cfg, postgres.Migrations(), log); err != nil {
//	    return err
//	}
//	s := postgres.New(pool)
package postgres
