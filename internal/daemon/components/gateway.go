package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/statusrole/internal/adapter"
	"github.com/harunnryd/statusrole/internal/command"
	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/daemon"
)

// GatewayComponent owns the Discord session and the log fan-out. Its Init builds the
// adapters so the engine can bind to them; the session opens on Start.
type GatewayComponent struct {
	cfg         *config.Config
	ingressComp *IngressComponent
	discord     *adapter.DiscordAdapter
	runtime     *adapter.RuntimeManager
	router      *command.Router
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewGatewayComponent(cfg *config.Config, ingComp *IngressComponent) *GatewayComponent {
	return &GatewayComponent{
		cfg:         cfg,
		ingressComp: ingComp,
	}
}

func (g *GatewayComponent) Name() string {
	return "Gateway"
}

func (g *GatewayComponent) Dependencies() []string {
	return []string{"Ingress"}
}

func (g *GatewayComponent) Init(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cfg == nil || g.ingressComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}
	in := g.ingressComp.GetIngress()
	if in == nil {
		return fmt.Errorf("ingress not initialized")
	}

	if g.cfg.Discord.CommandsEnabled {
		g.router = command.NewRouter(g.cfg.Discord.CommandPrefix)
	}

	discord, err := adapter.NewDiscordAdapter(adapter.DiscordOptions{
		Token:        g.cfg.Discord.BotToken,
		GuildID:      g.cfg.Discord.GuildID,
		LogChannelID: g.cfg.Discord.LogChannelID,
		Commands:     g.router,
	}, in)
	if err != nil {
		return fmt.Errorf("create discord adapter: %w", err)
	}

	runtime, err := adapter.NewRuntimeManager(g.cfg.Mirrors, discord)
	if err != nil {
		return fmt.Errorf("create adapter runtime: %w", err)
	}

	g.discord = discord
	g.runtime = runtime
	g.initialized = true
	slog.Info("Gateway initialized", "component", g.Name(), "mirrors", len(runtime.Mirrors()), "commands", g.router != nil)
	return nil
}

func (g *GatewayComponent) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.initialized {
		return fmt.Errorf("Gateway not initialized")
	}
	if err := g.runtime.Start(ctx); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	g.started = true
	return nil
}

func (g *GatewayComponent) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return nil
	}
	g.started = false
	return g.runtime.Stop(ctx)
}

func (g *GatewayComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.initialized {
		return daemon.Unhealthy(g.Name(), fmt.Errorf("not initialized")), nil
	}
	if !g.started {
		return daemon.Unhealthy(g.Name(), fmt.Errorf("not started")), nil
	}
	if err := g.runtime.Health(ctx); err != nil {
		return daemon.Unhealthy(g.Name(), err), nil
	}
	return daemon.Healthy(g.Name()), nil
}

func (g *GatewayComponent) Discord() *adapter.DiscordAdapter {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.discord
}

func (g *GatewayComponent) Runtime() *adapter.RuntimeManager {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.runtime
}

// Router is nil when chat commands are disabled.
func (g *GatewayComponent) Router() *command.Router {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.router
}
