package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/errors"
)

// Rescanner queues every known member for an additive rescan.
type Rescanner interface {
	Rescan(ctx context.Context) (int, error)
}

// Scheduler runs periodic rescans on a cron schedule. An empty schedule disables it.
type Scheduler struct {
	schedule        string
	rescanner       Rescanner
	shutdownTimeout time.Duration

	mu      sync.RWMutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	lastRun time.Time
	lastErr error
}

func NewScheduler(rescanner Rescanner, cfg config.SchedulerConfig) (*Scheduler, error) {
	shutdownTimeout, err := config.DurationOrDefault(cfg.ShutdownTimeout, config.DefaultSchedulerShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler shutdown timeout: %w", err)
	}

	schedule := strings.TrimSpace(cfg.RescanSchedule)
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("invalid rescan schedule %q: %v", schedule, err))
		}
	}

	return &Scheduler{
		schedule:        schedule,
		rescanner:       rescanner,
		shutdownTimeout: shutdownTimeout,
	}, nil
}

func (s *Scheduler) Enabled() bool {
	return s.schedule != ""
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if !s.Enabled() {
		slog.Info("Rescan schedule not configured, scheduler idle")
		s.running = true
		return nil
	}
	if s.rescanner == nil {
		return errors.InvalidInput("rescanner not configured")
	}

	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(s.schedule, s.runRescan); err != nil {
		return errors.InvalidInput(fmt.Sprintf("schedule rescan: %v", err))
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = c
	s.running = true
	c.Start()

	slog.Info("Scheduler started", "schedule", s.schedule)
	return nil
}

func (s *Scheduler) runRescan() {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	n, err := s.rescanner.Rescan(ctx)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		slog.Error("Scheduled rescan failed", "error", err)
		return
	}
	slog.Info("Scheduled rescan queued", "members", n)
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	cancel := s.cancel
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-c.Stop().Done():
		slog.Info("Scheduler stopped gracefully")
		return nil
	case <-timer.C:
		slog.Warn("Scheduler shutdown timeout, force stopping")
		return errors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return errors.Internal("scheduler not running")
	}
	if s.lastErr != nil {
		return fmt.Errorf("last rescan failed: %w", errors.ErrTransient)
	}
	return nil
}

// LastRun reports when the most recent rescan finished.
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
