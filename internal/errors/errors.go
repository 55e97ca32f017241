package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrDuplicateEvent - duplicate event detected (dropped silently)
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrPermissionDenied - the bot lacks permission for a role mutation (action dropped, siblings continue)
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput - invalid configuration or malformed input (fatal at startup)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - guild, channel, role or member not found (dependent operation skipped)
	ErrNotFound = errors.New("not found")

	// ErrConflict - conflicting state (e.g. instance already running)
	ErrConflict = errors.New("conflict")

	// ErrTransient - transient error (rate limit, gateway hiccup, full queue)
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)
