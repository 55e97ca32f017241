package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/daemon"
)

// HealthReporter is the part of the daemon the health endpoint reads.
type HealthReporter interface {
	Health() daemon.HealthStatus
	ComponentHealth() map[string]*daemon.ComponentHealth
	Uptime() time.Duration
}

// HTTPServerComponent serves /health and /metrics.
type HTTPServerComponent struct {
	reporter     HealthReporter
	gatherer     prometheus.Gatherer
	cfg          *config.ServerConfig
	dependencies []string
	server       *http.Server
	shutdownTTL  time.Duration
	initialized  bool
	started      bool
	mu           sync.RWMutex
}

func NewHTTPServerComponent(reporter HealthReporter, gatherer prometheus.Gatherer, cfg *config.ServerConfig) *HTTPServerComponent {
	return NewHTTPServerComponentWithDependencies(reporter, gatherer, cfg, []string{"Store", "Engine", "Ingress", "Workers", "Gateway", "Scheduler"})
}

func NewHTTPServerComponentWithDependencies(reporter HealthReporter, gatherer prometheus.Gatherer, cfg *config.ServerConfig, dependencies []string) *HTTPServerComponent {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &HTTPServerComponent{
		reporter:     reporter,
		gatherer:     gatherer,
		cfg:          cfg,
		dependencies: append([]string(nil), dependencies...),
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return append([]string(nil), h.dependencies...)
}

// Handler returns the routes served by the component.
func (h *HTTPServerComponent) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg == nil {
		return fmt.Errorf("server config not provided")
	}

	readTimeout, err := config.DurationOrDefault(h.cfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(h.cfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(h.cfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(h.cfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.cfg.Port),
		Handler:      h.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout
	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", h.cfg.Port)
	return nil
}

func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	server := h.server
	go func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}()

	h.started = true
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}
	h.started = false
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return daemon.Unhealthy(h.Name(), fmt.Errorf("not initialized")), nil
	}
	if !h.started {
		return daemon.Unhealthy(h.Name(), fmt.Errorf("not started")), nil
	}
	return daemon.Healthy(h.Name()), nil
}

type componentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Daemon     daemon.HealthStatus        `json:"daemon"`
	Uptime     string                     `json:"uptime"`
	Components map[string]componentStatus `json:"components"`
}

func (h *HTTPServerComponent) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{Status: "ok", Components: map[string]componentStatus{}}
	code := http.StatusOK
	if h.reporter != nil {
		resp.Daemon = h.reporter.Health()
		resp.Uptime = h.reporter.Uptime().Truncate(time.Second).String()
		for name, ch := range h.reporter.ComponentHealth() {
			status := componentStatus{Healthy: ch.Healthy}
			if ch.Error != nil {
				status.Error = ch.Error.Error()
			}
			if !ch.Healthy {
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
			resp.Components[name] = status
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Debug("Failed to write health response", "error", err)
	}
}
