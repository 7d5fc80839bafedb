package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/devicecap/pkg/logger"
)

// Applier resolves scheduled changes that are due. planchange.Runner implements it.
type Applier interface {
	ApplyDue(ctx context.Context) (int, error)
}

// RunRecorder receives the outcome of every run, e.g. for metrics.
type RunRecorder interface {
	ScheduledRun(applied int, err error)
}

type noopRecorder struct{}

func (noopRecorder) ScheduledRun(int, error) {}

// Scheduler runs an Applier on a cron schedule.
type Scheduler struct {
	applier  Applier
	spec     string
	timeout  time.Duration
	log      *slog.Logger
	recorder RunRecorder

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTimeout bounds a single run.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithRecorder(r RunRecorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New validates spec and returns a stopped scheduler.
func New(applier Applier, spec string, opts ...Option) (*Scheduler, error) {
	if applier == nil {
		panic("scheduler: applier is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, errors.Join(ErrInvalidSpec, err)
	}
	s := &Scheduler{
		applier:  applier,
		spec:     spec,
		timeout:  5 * time.Minute,
		log:      slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("scheduler"))
	return s, nil
}

// Start begins running on the schedule. Runs use ctx as their parent, so canceling it
// aborts an in-flight run; call Stop to stop scheduling.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrAlreadyStarted
	}

	cl := cronLogger{log: s.log}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(s.spec, func() { _, _ = s.RunOnce(ctx) }); err != nil {
		return errors.Join(ErrInvalidSpec, err)
	}
	c.Start()
	s.cron = c

	s.log.InfoContext(ctx, "scheduler started", slog.String("spec", s.spec))
	return nil
}

// Stop stops scheduling and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.log.InfoContext(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce applies due changes immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	applied, err := s.applier.ApplyDue(ctx)
	s.recorder.ScheduledRun(applied, err)

	attrs := []any{slog.Int("applied", applied), slog.Duration("took", time.Since(started))}
	switch {
	case err != nil:
		s.log.ErrorContext(ctx, "scheduled changes run failed", append(attrs, logger.Error(err))...)
	case applied > 0:
		s.log.InfoContext(ctx, "scheduled changes applied", attrs...)
	default:
		s.log.DebugContext(ctx, "no scheduled changes due")
	}
	return applied, err
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, logger.Error(err))...)
}
