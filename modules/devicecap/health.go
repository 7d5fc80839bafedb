package devicecap

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/devicecap/handler"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

// HealthStatus is the body of /healthz.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler runs every check concurrently, each bounded by timeout.
// It responds 200 when all pass and 503 otherwise.
func NewHealthHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return handler.Wrap(func(ctx handler.Context, _ struct{}) handler.Response {
		var (
			mu     sync.Mutex
			status = HealthStatus{Status: "ok", Checks: make(map[string]string, len(checks))}
			g      errgroup.Group
		)
		for name, check := range checks {
			g.Go(func() error {
				cctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				err := check(cctx)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					status.Checks[name] = err.Error()
					log.WarnContext(ctx, "health check failed", slog.String("check", name), slog.Any("error", err))
					return err
				}
				status.Checks[name] = "ok"
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			status.Status = "unavailable"
			return handler.JSON(status, handler.WithStatus(http.StatusServiceUnavailable))
		}
		return handler.JSON(status)
	})
}
