package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/daemon"
	"github.com/harunnryd/statusrole/internal/ingress"
	"github.com/harunnryd/statusrole/internal/metrics"
)

type IngressComponent struct {
	ingress     *ingress.Ingress
	cfg         *config.EngineConfig
	metrics     *metrics.Metrics
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewIngressComponent(cfg *config.EngineConfig, m *metrics.Metrics) *IngressComponent {
	return &IngressComponent{
		cfg:     cfg,
		metrics: m,
	}
}

func (i *IngressComponent) Name() string {
	return "Ingress"
}

func (i *IngressComponent) Dependencies() []string {
	return []string{}
}

func (i *IngressComponent) Init(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cfg == nil {
		return fmt.Errorf("engine config not provided")
	}

	submitTimeout, err := config.DurationOrDefault(i.cfg.SubmitTimeout, config.DefaultEngineSubmitTimeout)
	if err != nil {
		return fmt.Errorf("parse engine submit timeout: %w", err)
	}
	drainTimeout, err := config.DurationOrDefault(i.cfg.DrainTimeout, config.DefaultEngineDrainTimeout)
	if err != nil {
		return fmt.Errorf("parse engine drain timeout: %w", err)
	}

	i.ingress = ingress.NewIngress(ingress.RuntimeConfig{
		Lanes:         i.cfg.Lanes,
		QueueSize:     i.cfg.QueueSize,
		SubmitTimeout: submitTimeout,
		DrainTimeout:  drainTimeout,
	}, i.metrics)

	i.initialized = true
	slog.Info("Ingress initialized", "component", i.Name(), "lanes", len(i.ingress.Lanes()))
	return nil
}

func (i *IngressComponent) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.initialized {
		return fmt.Errorf("Ingress not initialized")
	}
	i.started = true
	return nil
}

func (i *IngressComponent) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.started {
		return nil
	}
	i.started = false
	return i.ingress.Close()
}

func (i *IngressComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if !i.initialized {
		return daemon.Unhealthy(i.Name(), fmt.Errorf("not initialized")), nil
	}
	if !i.started {
		return daemon.Unhealthy(i.Name(), fmt.Errorf("not started")), nil
	}
	if err := i.ingress.Health(ctx); err != nil {
		return daemon.Unhealthy(i.Name(), err), nil
	}
	return daemon.Healthy(i.Name()), nil
}

func (i *IngressComponent) GetIngress() *ingress.Ingress {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ingress
}
