// Package pg bootstraps PostgreSQL access through pgx/v5: a retrying pool
// constructor, goose migrations from an fs.FS, a health check closure and
// helpers classifying pgx errors.
//
//	var cfg pg.Config // populated by config.Load
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, postgres.Migrations(), log); err != nil {
//	    return err
//	}
//	check := pg.Healthcheck(pool)
package pg
