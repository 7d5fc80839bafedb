// Package redis wraps go-redis for the engine's optional cross-instance coordination.
//
// Connect opens a client with retries, Healthcheck feeds /healthz, and Locker
// provides the per-account mutex that store.WithLocker holds around every
// account transaction when several engine instances share one database:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	locker := redis.NewLocker(client, redis.WithLockTTL(30*time.Second))
//	st := store.WithLocker(postgres.New(pool), locker)
package redis
