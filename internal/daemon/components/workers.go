package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/daemon"
	"github.com/harunnryd/statusrole/internal/worker"
)

type WorkersComponent struct {
	pool        *worker.Pool
	ingressComp *IngressComponent
	engineComp  *EngineComponent
	cfg         *config.WorkerConfig
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewWorkersComponent(cfg *config.WorkerConfig, ingComp *IngressComponent, engComp *EngineComponent) *WorkersComponent {
	return &WorkersComponent{
		ingressComp: ingComp,
		engineComp:  engComp,
		cfg:         cfg,
	}
}

func (w *WorkersComponent) Name() string {
	return "Workers"
}

func (w *WorkersComponent) Dependencies() []string {
	return []string{"Ingress", "Engine"}
}

func (w *WorkersComponent) Init(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ingressComp == nil || w.engineComp == nil {
		return fmt.Errorf("required component dependencies not provided")
	}
	if w.cfg == nil {
		return fmt.Errorf("worker config not provided")
	}

	in := w.ingressComp.GetIngress()
	eng := w.engineComp.GetEngine()
	if in == nil || eng == nil {
		return fmt.Errorf("required dependencies not initialized")
	}

	shutdownTimeout, err := config.DurationOrDefault(w.cfg.ShutdownTimeout, config.DefaultWorkerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse worker shutdown timeout: %w", err)
	}

	w.pool = worker.NewPool(in, eng, worker.RuntimeConfig{ShutdownTimeout: shutdownTimeout})
	w.initialized = true
	slog.Info("Workers initialized", "component", w.Name(), "lanes", w.pool.Size())
	return nil
}

func (w *WorkersComponent) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		return fmt.Errorf("Workers not initialized")
	}

	// Workers outlive the signal context; Stop drains what is already queued.
	if err := w.pool.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	w.started = true
	return nil
}

func (w *WorkersComponent) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		slog.Info("Workers not started, skipping stop", "component", w.Name())
		return nil
	}

	slog.Info("Stopping Workers...", "component", w.Name())
	err := w.pool.Stop(ctx)
	w.started = false
	return err
}

func (w *WorkersComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.initialized {
		return daemon.Unhealthy(w.Name(), fmt.Errorf("not initialized")), nil
	}
	if !w.started {
		return daemon.Unhealthy(w.Name(), fmt.Errorf("not started")), nil
	}
	if err := w.pool.Health(ctx); err != nil {
		return daemon.Unhealthy(w.Name(), err), nil
	}
	return daemon.Healthy(w.Name()), nil
}
