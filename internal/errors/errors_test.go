package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/stretchr/testify/assert"
)

func restError(status, code int, msg string) error {
	e := &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
	if code != 0 {
		e.Message = &discordgo.APIErrorMessage{Code: code, Message: msg}
	}
	return e
}

func TestMapDiscordError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "missing permissions code", err: restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions, "Missing Permissions"), want: ErrPermissionDenied},
		{name: "unknown role code", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownRole, "Unknown Role"), want: ErrNotFound},
		{name: "bare forbidden", err: restError(http.StatusForbidden, 0, ""), want: ErrPermissionDenied},
		{name: "rate limited", err: restError(http.StatusTooManyRequests, 0, ""), want: ErrTransient},
		{name: "server error", err: restError(http.StatusBadGateway, 0, ""), want: ErrTransient},
		{name: "bad request", err: restError(http.StatusBadRequest, 0, ""), want: ErrInvalidInput},
		{name: "state miss", err: discordgo.ErrStateNotFound, want: ErrNotFound},
		{name: "wrapped state miss", err: fmt.Errorf("lookup role: %w", discordgo.ErrStateNotFound), want: ErrNotFound},
		{name: "plain network error", err: fmt.Errorf("dial tcp: connection refused"), want: ErrTransient},
		{name: "unknown", err: fmt.Errorf("boom"), want: ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDiscordError(tt.err)
			assert.ErrorIs(t, got, tt.want)
		})
	}

	assert.NoError(t, MapDiscordError(nil))
}

func TestMapError_TextualCategories(t *testing.T) {
	m := NewDefaultErrorMapper()

	assert.ErrorIs(t, m.MapError(fmt.Errorf("403 Forbidden")), ErrPermissionDenied)
	assert.ErrorIs(t, m.MapError(fmt.Errorf("Missing Permissions")), ErrPermissionDenied)
	assert.ErrorIs(t, m.MapError(fmt.Errorf("role does not exist")), ErrNotFound)
	assert.ErrorIs(t, m.MapError(context.DeadlineExceeded), ErrTransient)
	assert.ErrorIs(t, m.MapError(context.Canceled), context.Canceled)
	assert.Nil(t, m.MapError(nil))
}

func TestMapDiscordError_KeepsCause(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     error
		contains string
	}{
		{name: "gateway close", err: fmt.Errorf("websocket: close 4014: Disallowed intent(s)"), want: ErrInternal, contains: "Disallowed intent(s)"},
		{name: "textual bad request", err: fmt.Errorf("invalid request: Invalid Form Body (50035)"), want: ErrInvalidInput, contains: "Invalid Form Body"},
		{name: "network", err: fmt.Errorf("dial tcp 162.159.0.1:443: connection refused"), want: ErrTransient, contains: "162.159.0.1:443"},
		{name: "deadline", err: fmt.Errorf("add role: %w", context.DeadlineExceeded), want: ErrTransient, contains: "add role"},
		{name: "rest missing permissions", err: restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions, "Missing Permissions"), want: ErrPermissionDenied, contains: "HTTP"},
		{name: "rest server error", err: restError(http.StatusBadGateway, 0, ""), want: ErrTransient, contains: "HTTP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDiscordError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
			assert.Contains(t, got.Error(), tt.contains)
		})
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: PermissionDenied("no"), want: "permission_denied"},
		{err: NotFound("role"), want: "not_found"},
		{err: Conflict("locked"), want: "conflict"},
		{err: Transient("later"), want: "transient"},
		{err: InvalidInput("bad"), want: "invalid_input"},
		{err: Internal("oops"), want: "internal"},
		{err: MapDiscordError(restError(http.StatusNotFound, discordgo.ErrCodeUnknownRole, "Unknown Role")), want: "not_found"},
		{err: fmt.Errorf("x"), want: "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Category(tt.err), "Category(%v)", tt.err)
	}
}

func TestWrapWithCategory(t *testing.T) {
	err := WrapWithCategory(fmt.Errorf("cause"), "add role", ErrPermissionDenied)

	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "cause")
	assert.Nil(t, WrapWithCategory(nil, "x", ErrInternal))
}
