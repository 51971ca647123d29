package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
)

// Scheduler runs a round every interval while enabled. Disabling only
// pauses the job; Toggle switches it back on without a restart.
type Scheduler struct {
	runner   *Runner
	interval time.Duration
	enabled  atomic.Bool

	cron   *gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. cfg.Enabled sets the initial state.
func New(cfg config.ScheduleConfig, runner *Runner) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		interval: cfg.Interval,
		cron:     gocron.NewScheduler(time.UTC),
	}
	if s.interval <= 0 {
		s.interval = config.DefaultInterval
	}
	s.enabled.Store(cfg.Enabled)
	return s
}

// Start registers the jobs and starts the scheduler in the background. One
// round runs straight away whether or not auto-predict is on, so a fresh
// server has a latest round; the periodic job first fires one interval
// after Start. Rounds use a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	_, err := s.cron.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.tick)
	if err != nil {
		return fmt.Errorf("schedule: register job: %w", err)
	}
	if _, err := s.cron.Every(1).Second().LimitRunsTo(1).Do(s.run); err != nil {
		return fmt.Errorf("schedule: register warm-up: %w", err)
	}
	s.cron.StartAsync()
	zap.L().Info("schedule: started",
		zap.Duration("interval", s.interval),
		zap.Bool("enabled", s.Enabled()))
	return nil
}

// Stop cancels an in-flight round and stops the scheduler.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cron.Stop()
}

// Enabled reports whether auto-predict is on.
func (s *Scheduler) Enabled() bool { return s.enabled.Load() }

// Toggle flips auto-predict and returns the new state.
func (s *Scheduler) Toggle() bool {
	for {
		old := s.enabled.Load()
		if s.enabled.CompareAndSwap(old, !old) {
			zap.L().Info("schedule: auto predict toggled", zap.Bool("enabled", !old))
			return !old
		}
	}
}

// Interval is the configured period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// NextRun is the time of the next scheduled tick, or zero before Start.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.cron.NextRun()
	return next
}

func (s *Scheduler) tick() {
	if !s.Enabled() {
		return
	}
	s.run()
}

func (s *Scheduler) run() {
	if s.runner.Busy() {
		zap.L().Debug("schedule: round still running, skipping tick")
		return
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.runner.Run(ctx); err != nil {
		if errors.Is(err, predictor.ErrBusy) {
			zap.L().Debug("schedule: round still running, skipping tick")
			return
		}
		zap.L().Warn("schedule: round failed", zap.Error(err))
	}
}
