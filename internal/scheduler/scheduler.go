// Package scheduler runs reconciliation and retention cleanup on fixed
// intervals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
)

// TaskFunc performs one run of a periodic job.
type TaskFunc func(ctx context.Context) error

// Config contains scheduler intervals.
type Config struct {
	SyncInterval    time.Duration // how often reconcile runs
	CleanupInterval time.Duration // how often retention cleanup runs
	RunOnStart      bool          // run both tasks once before the first tick
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		SyncInterval:    10 * time.Minute,
		CleanupInterval: 24 * time.Hour,
		RunOnStart:      true,
	}
}

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
}

// Scheduler drives the periodic tasks. A failed run is logged and retried
// on the next tick.
type Scheduler struct {
	tasks      []task
	runOnStart bool
	logger     *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a scheduler. Zero intervals take the defaults; a nil task
// function disables that task.
func New(cfg Config, reconcileFn, cleanupFn TaskFunc, logger *slog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	s := &Scheduler{
		runOnStart: cfg.RunOnStart,
		logger:     logging.OrDiscard(logger).With("component", "scheduler"),
	}
	if reconcileFn != nil {
		s.tasks = append(s.tasks, task{name: "reconcile", interval: cfg.SyncInterval, fn: reconcileFn})
	}
	if cleanupFn != nil {
		s.tasks = append(s.tasks, task{name: "cleanup", interval: cfg.CleanupInterval, fn: cleanupFn})
	}
	return s
}

// Start launches one loop per task. The loops stop when ctx is done or Stop
// is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, t := range s.tasks {
		s.logger.Info("starting task", "task", t.name, "interval", t.interval)
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	return nil
}

// Stop cancels the loops and waits up to timeout for in-flight runs.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scheduler shutdown timed out after %s", timeout)
	}
}

// RunOnce runs every task once, in order, and returns their combined errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, t := range s.tasks {
		if err := s.execute(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) loop(ctx context.Context, t task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.execute(ctx, t)
	}

	for {
		select {
		case <-ticker.C:
			s.execute(ctx, t)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, t task) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	start := time.Now()
	err := t.fn(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("task failed", "task", t.name, "err", err, "duration", duration)
		return err
	}
	s.logger.Debug("task completed", "task", t.name, "duration", duration)
	return nil
}
