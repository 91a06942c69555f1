package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of periodic work. It receives a context bounded by the
// scheduler's task timeout.
type Task func(ctx context.Context) error

// Scheduler runs named tasks on cron specs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	names   map[cron.EntryID]string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTaskTimeout bounds every task run.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLocation sets the timezone used to interpret specs.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.cron = cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		}
	}
}

// New builds an idle scheduler. Overlapping runs of the same task are skipped.
func New(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: 5 * time.Minute,
		names:   make(map[cron.EntryID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a task under spec, e.g. "@hourly" or "0 * * * *".
func (s *Scheduler) Register(name, spec string, task Task) error {
	if task == nil {
		return fmt.Errorf("register %s: nil task", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	s.names[id] = name
	s.logger.Info("scheduled task registered", zap.String("task", name), zap.String("spec", spec))
	return nil
}

// RunNow executes a registered-style task synchronously, outside the cron loop.
func (s *Scheduler) RunNow(name string, task Task) {
	s.run(name, task)
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", zap.String("task", name), zap.Any("panic", r))
		}
	}()

	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", zap.String("task", name), zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	s.logger.Info("scheduled task completed", zap.String("task", name), zap.Duration("duration", time.Since(start)))
}

// Start begins running tasks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("tasks", len(s.names)))
}

// Stop waits for running tasks or ctx, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
	s.logger.Info("scheduler stopped")
}

// Entries reports the next run time per task name.
func (s *Scheduler) Entries() map[string]time.Time {
	out := make(map[string]time.Time, len(s.names))
	for _, entry := range s.cron.Entries() {
		out[s.names[entry.ID]] = entry.Next
	}
	return out
}
