package daemon

import (
	"context"
)

type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

// Healthy reports a component as up.
func Healthy(name string) *ComponentHealth {
	return &ComponentHealth{Name: name, Healthy: true}
}

// Unhealthy reports a component as down with the given cause.
func Unhealthy(name string, err error) *ComponentHealth {
	return &ComponentHealth{Name: name, Healthy: false, Error: err}
}

// Component is one piece of the running bot. Init runs in dependency order,
// Start in registration order and Stop in reverse registration order.
type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}
