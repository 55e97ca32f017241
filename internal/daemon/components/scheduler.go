package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/daemon"
	"github.com/harunnryd/statusrole/internal/scheduler"
)

type SchedulerComponent struct {
	sched       *scheduler.Scheduler
	cfg         *config.SchedulerConfig
	gatewayComp *GatewayComponent
	mu          sync.RWMutex
}

func NewSchedulerComponent(cfg *config.SchedulerConfig, gatewayComp *GatewayComponent) *SchedulerComponent {
	return &SchedulerComponent{
		cfg:         cfg,
		gatewayComp: gatewayComp,
	}
}

func (s *SchedulerComponent) Name() string {
	return "Scheduler"
}

func (s *SchedulerComponent) Dependencies() []string {
	return []string{"Gateway"}
}

func (s *SchedulerComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gatewayComp == nil || s.cfg == nil {
		return fmt.Errorf("required component dependencies not provided")
	}
	discord := s.gatewayComp.Discord()
	if discord == nil {
		return fmt.Errorf("gateway not initialized")
	}

	sched, err := scheduler.NewScheduler(discord, *s.cfg)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	s.sched = sched
	slog.Info("Scheduler initialized", "component", s.Name(), "enabled", sched.Enabled())
	return nil
}

func (s *SchedulerComponent) Start(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sched == nil {
		return fmt.Errorf("Scheduler not initialized")
	}
	return s.sched.Start(ctx)
}

func (s *SchedulerComponent) Stop(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sched == nil {
		return nil
	}
	return s.sched.Stop(ctx)
}

func (s *SchedulerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sched == nil {
		return daemon.Unhealthy(s.Name(), fmt.Errorf("not initialized")), nil
	}
	if err := s.sched.Health(ctx); err != nil {
		return daemon.Unhealthy(s.Name(), err), nil
	}
	return daemon.Healthy(s.Name()), nil
}
