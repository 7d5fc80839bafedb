package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/pkg/logger"
	"github.com/dmitrymomot/devicecap/pkg/scheduler"
)

type fakeApplier struct {
	calls   atomic.Int32
	applied int
	err     error
}

func (f *fakeApplier) ApplyDue(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("run without deadline")
	}
	return f.applied, f.err
}

type runs struct {
	mu      sync.Mutex
	applied []int
	errs    int
}

func (r *runs) ScheduledRun(applied int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, applied)
	if err != nil {
		r.errs++
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	t.Parallel()
	_, err := scheduler.New(&fakeApplier{}, "not a cron spec")
	require.ErrorIs(t, err, scheduler.ErrInvalidSpec)
}

func TestRunOnce(t *testing.T) {
	t.Parallel()
	rec := &runs{}

	ok := &fakeApplier{applied: 2}
	s, err := scheduler.New(ok, "@every 1m", scheduler.WithRecorder(rec), scheduler.WithLogger(logger.Discard()))
	require.NoError(t, err)
	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	failing := &fakeApplier{err: errors.New("db down")}
	s, err = scheduler.New(failing, "@hourly", scheduler.WithRecorder(rec), scheduler.WithLogger(logger.Discard()))
	require.NoError(t, err)
	_, err = s.RunOnce(context.Background())
	require.Error(t, err)

	assert.Equal(t, []int{2, 0}, rec.applied)
	assert.Equal(t, 1, rec.errs)
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	app := &fakeApplier{}
	s, err := scheduler.New(app, "@every 1s", scheduler.WithLogger(logger.Discard()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.ErrorIs(t, s.Start(ctx), scheduler.ErrAlreadyStarted)

	require.Eventually(t, func() bool { return app.calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx), "stopping twice is a no-op")
}
