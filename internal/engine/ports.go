package engine

import (
	"context"

	"github.com/harunnryd/statusrole/internal/store"
)

// Role is a resolved guild role.
type Role struct {
	ID   string
	Name string
}

// Guild resolves roles and mutates member roles on the chat platform.
// Implementations should classify failures with the internal/errors categories
// so permission and not-found errors can be told apart.
type Guild interface {
	Role(ctx context.Context, roleID string) (Role, error)
	AddRole(ctx context.Context, memberID, roleID string) error
	RemoveRole(ctx context.Context, memberID, roleID string) error
}

// LogSink delivers public transition lines to the configured log channel.
type LogSink interface {
	Send(ctx context.Context, text string) error
}

// Recorder journals every role decision.
type Recorder interface {
	Record(ctx context.Context, t store.Transition) error
}
