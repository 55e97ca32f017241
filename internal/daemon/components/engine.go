package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/statusrole/internal/command"
	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/daemon"
	"github.com/harunnryd/statusrole/internal/engine"
	"github.com/harunnryd/statusrole/internal/metrics"
	"github.com/harunnryd/statusrole/internal/statuscache"
)

type EngineComponent struct {
	cfg         *config.Config
	storeComp   *StoreComponent
	gatewayComp *GatewayComponent
	metrics     *metrics.Metrics
	engine      *engine.Engine
	initialized bool
	mu          sync.RWMutex
}

func NewEngineComponent(cfg *config.Config, storeComp *StoreComponent, gatewayComp *GatewayComponent, m *metrics.Metrics) *EngineComponent {
	return &EngineComponent{
		cfg:         cfg,
		storeComp:   storeComp,
		gatewayComp: gatewayComp,
		metrics:     m,
	}
}

func (e *EngineComponent) Name() string {
	return "Engine"
}

func (e *EngineComponent) Dependencies() []string {
	return []string{"Store", "Gateway"}
}

func (e *EngineComponent) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg == nil || e.storeComp == nil || e.gatewayComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}

	ruleSet, err := e.cfg.RuleSet()
	if err != nil {
		return fmt.Errorf("build rule set: %w", err)
	}
	presence, err := engine.ParseRevokePolicy(e.cfg.Engine.PresenceRevokePolicy)
	if err != nil {
		return fmt.Errorf("presence revoke policy: %w", err)
	}
	profile, err := engine.ParseRevokePolicy(e.cfg.Engine.ProfileRevokePolicy)
	if err != nil {
		return fmt.Errorf("profile revoke policy: %w", err)
	}

	discord := e.gatewayComp.Discord()
	sink := e.gatewayComp.Runtime()
	if discord == nil || sink == nil {
		return fmt.Errorf("gateway not initialized")
	}

	opts := []engine.Option{engine.WithMetrics(e.metrics)}
	if journal := e.storeComp.Journal(); journal != nil {
		opts = append(opts, engine.WithRecorder(journal))
	}

	eng, err := engine.New(engine.Config{
		GuildID:        e.cfg.Discord.GuildID,
		Rules:          ruleSet,
		PresenceRevoke: presence,
		ProfileRevoke:  profile,
	}, statuscache.New(), discord, sink, opts...)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	if router := e.gatewayComp.Router(); router != nil {
		command.RegisterBuiltins(router, eng, discord)
	}

	e.engine = eng
	e.initialized = true
	slog.Info("Engine initialized", "component", e.Name(), "rules", ruleSet.Len(), "presence_revoke", presence, "profile_revoke", profile)
	return nil
}

func (e *EngineComponent) Start(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return fmt.Errorf("Engine not initialized")
	}
	return nil
}

func (e *EngineComponent) Stop(ctx context.Context) error {
	return nil
}

func (e *EngineComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return daemon.Unhealthy(e.Name(), fmt.Errorf("not initialized")), nil
	}
	return daemon.Healthy(e.Name()), nil
}

func (e *EngineComponent) GetEngine() *engine.Engine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.engine
}
