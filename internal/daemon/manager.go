package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/store"
)

type Daemon struct {
	cfg             *config.Config
	workspaceID     string
	components      []Component
	byName          map[string]Component
	initialized     []Component
	shutdownOrder   []string
	health          HealthStatus
	uptimeStart     time.Time
	mu              sync.RWMutex
	healthCheckDone chan struct{}
	forceCleanup    bool
}

func NewDaemon(workspaceID string, cfg *config.Config) (*Daemon, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace ID cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Daemon{
		workspaceID:     workspaceID,
		cfg:             cfg,
		components:      make([]Component, 0),
		byName:          make(map[string]Component),
		shutdownOrder:   make([]string, 0),
		health:          StatusStarting,
		uptimeStart:     time.Now(),
		healthCheckDone: make(chan struct{}),
		forceCleanup:    false,
	}, nil
}

func (d *Daemon) AddComponent(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components = append(d.components, comp)
	d.byName[comp.Name()] = comp
	d.shutdownOrder = append([]string{comp.Name()}, d.shutdownOrder...)
	slog.Info("Component registered", "component", comp.Name(), "total_components", len(d.components))
}

func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("statusrole daemon starting", "workspace", d.workspaceID, "guild_id", d.cfg.Discord.GuildID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.validateConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := d.preInitChecks(ctx, d.forceCleanup); err != nil {
		return fmt.Errorf("pre-init checks failed: %w", err)
	}

	if err := d.initializeComponents(ctx); err != nil {
		d.rollback(ctx)
		return fmt.Errorf("component initialization failed: %w", err)
	}

	if err := d.startComponents(ctx); err != nil {
		startupShutdownTimeout, timeoutErr := config.DurationOrDefault(d.cfg.Daemon.StartupShutdownTimeout, config.DefaultDaemonStartupShutdownTimeout)
		if timeoutErr != nil {
			return fmt.Errorf("parse daemon startup shutdown timeout: %w", timeoutErr)
		}
		_ = d.gracefulShutdown(context.WithoutCancel(ctx), startupShutdownTimeout)
		return fmt.Errorf("component startup failed: %w", err)
	}

	d.setHealth(StatusRunning)
	slog.Info("statusrole daemon running", "workspace", d.workspaceID, "components", len(d.components))

	go d.startHealthMonitor(ctx)

	<-ctx.Done()

	slog.Info("Context cancelled, initiating graceful shutdown", "workspace", d.workspaceID, "reason", ctx.Err())
	d.setHealth(StatusStopping)
	close(d.healthCheckDone)
	shutdownTimeout, err := config.DurationOrDefault(d.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse daemon shutdown timeout: %w", err)
	}
	shutdownErr := d.gracefulShutdown(context.Background(), shutdownTimeout)
	if shutdownErr != nil {
		return shutdownErr
	}

	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	return nil
}

func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.health
}

func (d *Daemon) Uptime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return time.Since(d.uptimeStart)
}

func (d *Daemon) SetForceCleanup(force bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forceCleanup = force
}

func (d *Daemon) ComponentHealth() map[string]*ComponentHealth {
	d.mu.RLock()
	components := make([]Component, len(d.components))
	copy(components, d.components)
	d.mu.RUnlock()

	result := make(map[string]*ComponentHealth)
	for _, comp := range components {
		health, err := comp.Health(context.Background())
		if health == nil {
			health = Unhealthy(comp.Name(), err)
		}
		if err != nil {
			health.Healthy = false
			health.Error = err
		}
		result[comp.Name()] = health
	}
	return result
}

func (d *Daemon) setHealth(status HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health = status
}

func (d *Daemon) validateConfig() error {
	slog.Info("Validating configuration...")

	if err := d.cfg.Validate(); err != nil {
		return err
	}
	if d.cfg.Server.Port < 1 || d.cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", d.cfg.Server.Port)
	}

	workspacePath, err := store.GetWorkspacePath(d.workspaceID, d.cfg.Daemon.WorkspacePath)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}
	if err := os.MkdirAll(workspacePath, 0755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	slog.Info("Configuration validated", "workspace", d.workspaceID, "rules", len(d.cfg.StatusRoles), "port", d.cfg.Server.Port)
	return nil
}

// preInitChecks clears an instance lock left behind by a crashed process.
func (d *Daemon) preInitChecks(ctx context.Context, forceCleanup bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pre-init checks cancelled: %w", err)
	}

	workspacePath, err := store.GetWorkspacePath(d.workspaceID, d.cfg.Daemon.WorkspacePath)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}
	staleLockTTL, err := config.DurationOrDefault(d.cfg.Daemon.StaleLockTTL, config.DefaultDaemonStaleLockTTL)
	if err != nil {
		return fmt.Errorf("parse daemon stale lock ttl: %w", err)
	}

	if err := store.CleanupStaleLocks(workspacePath, staleLockTTL, forceCleanup); err != nil {
		slog.Warn("Failed to cleanup stale locks", "workspace", d.workspaceID, "error", err)
	}
	slog.Debug("Pre-init checks completed", "workspace", d.workspaceID)
	return nil
}

func (d *Daemon) initializeComponents(ctx context.Context) error {
	order, err := d.resolveInitOrder()
	if err != nil {
		return err
	}
	slog.Info("Initializing components", "workspace", d.workspaceID, "order", order)

	for _, name := range order {
		comp := d.byName[name]
		if err := comp.Init(ctx); err != nil {
			slog.Error("Component initialization failed", "component", name, "error", err)
			return fmt.Errorf("init %s: %w", name, err)
		}
		d.initialized = append(d.initialized, comp)
		slog.Debug("Component initialized", "component", name)
	}
	return nil
}

// startComponents starts in registration order and stops at the first failure.
func (d *Daemon) startComponents(ctx context.Context) error {
	for _, comp := range d.components {
		began := time.Now()
		if err := comp.Start(ctx); err != nil {
			slog.Error("Component startup failed", "component", comp.Name(), "error", err)
			return fmt.Errorf("start %s: %w", comp.Name(), err)
		}
		slog.Info("Component started", "component", comp.Name(), "took", time.Since(began))
	}
	slog.Info("All components started", "count", len(d.components))
	return nil
}

func (d *Daemon) gracefulShutdown(ctx context.Context, timeout time.Duration) error {
	slog.Info("Graceful shutdown initiated", "workspace", d.workspaceID, "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.shutdownComponents(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("Shutdown completed with errors", "workspace", d.workspaceID, "error", err)
			return err
		}
		slog.Info("Graceful shutdown completed", "workspace", d.workspaceID)
		return nil
	case <-shutdownCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("shutdown cancelled: %w", ctx.Err())
		}
		slog.Error("Shutdown timeout exceeded", "workspace", d.workspaceID, "timeout", timeout)
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// shutdownComponents stops every component in reverse registration order. A failing
// Stop does not prevent the rest from stopping; all failures are returned joined.
func (d *Daemon) shutdownComponents(ctx context.Context) error {
	var errs []error
	for _, name := range d.shutdownOrder {
		if err := d.stopComponent(ctx, d.byName[name]); err != nil {
			errs = append(errs, err)
		}
	}
	d.setHealth(StatusStopped)
	return errors.Join(errs...)
}

// rollback stops the components whose Init succeeded, newest first.
func (d *Daemon) rollback(ctx context.Context) {
	slog.Warn("Rolling back initialized components", "workspace", d.workspaceID, "count", len(d.initialized))
	for i := len(d.initialized) - 1; i >= 0; i-- {
		_ = d.stopComponent(ctx, d.initialized[i])
	}
	d.initialized = nil
	d.setHealth(StatusStopped)
}

func (d *Daemon) stopComponent(ctx context.Context, comp Component) error {
	began := time.Now()
	if err := comp.Stop(ctx); err != nil {
		slog.Error("Component stop failed", "component", comp.Name(), "error", err)
		return fmt.Errorf("stop %s: %w", comp.Name(), err)
	}
	slog.Info("Component stopped", "component", comp.Name(), "took", time.Since(began))
	return nil
}

func (d *Daemon) Component(name string) Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byName[name]
}

func (d *Daemon) startHealthMonitor(ctx context.Context) {
	healthCheckInterval, err := config.DurationOrDefault(d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval)
	if err != nil {
		slog.Error("Failed to parse daemon health check interval", "error", err)
		return
	}

	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.healthCheckDone:
			return
		case <-ticker.C:
			d.checkComponentHealth(ctx)
		}
	}
}

func (d *Daemon) checkComponentHealth(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	unhealthy := 0
	healths := d.ComponentHealth()
	for name, health := range healths {
		if !health.Healthy {
			unhealthy++
			slog.Warn("Component unhealthy", "component", name, "error", health.Error)
		}
	}

	if unhealthy > 0 {
		slog.Warn("Daemon has unhealthy components", "count", unhealthy, "total", len(healths))
	} else {
		slog.Debug("All components healthy", "count", len(healths))
	}
	return unhealthy
}

// resolveInitOrder places every component after its dependencies, otherwise keeping
// registration order. Unregistered dependencies and cycles are errors.
func (d *Daemon) resolveInitOrder() ([]string, error) {
	const (
		visiting = iota + 1
		visited
	)
	state := make(map[string]int, len(d.components))
	order := make([]string, 0, len(d.components))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("circular dependency: %s -> %s", strings.Join(path, " -> "), name)
		}

		comp, ok := d.byName[name]
		if !ok {
			return fmt.Errorf("component %s depends on %s which is not registered", path[len(path)-1], name)
		}

		state[name] = visiting
		path = append(path, name)
		for _, dep := range comp.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = visited
		order = append(order, name)
		return nil
	}

	for _, comp := range d.components {
		if err := visit(comp.Name()); err != nil {
			return nil, err
		}
	}
	return order, nil
}
