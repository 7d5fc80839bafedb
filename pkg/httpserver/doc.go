// Package httpserver runs an http.Server until its context is canceled and then
// shuts it down gracefully within Config.ShutdownTimeout.
//
//	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))
//	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Errors are wrapped with ErrStart or ErrShutdown.
package httpserver
