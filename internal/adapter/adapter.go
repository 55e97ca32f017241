package adapter

import (
	"context"
)

// InputAdapter defines the interface for adapters that receive events from external platforms
type InputAdapter interface {
	// Name returns the adapter name (e.g. "discord").
	Name() string

	// Start connects to the platform and begins delivering events.
	// Must respect context cancellation.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter.
	Stop(ctx context.Context) error

	// Health checks if the adapter is healthy and connected.
	Health(ctx context.Context) error
}

// OutputAdapter defines the interface for adapters that deliver log lines to external platforms
type OutputAdapter interface {
	// Name returns the adapter name.
	Name() string

	// Send delivers content to a destination on the platform.
	// destination is platform specific (channel ID, chat ID, etc.).
	Send(ctx context.Context, destination string, content string) error

	// Health checks if the adapter is healthy and can send messages.
	Health(ctx context.Context) error
}
