package adapter

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
)

// ConsoleAdapter prints log lines to a terminal. Grants are green, revokes red.
type ConsoleAdapter struct {
	mu  sync.Mutex
	out io.Writer

	grant  lipgloss.Style
	revoke lipgloss.Style
	plain  lipgloss.Style
}

func NewConsoleAdapter(out io.Writer) *ConsoleAdapter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleAdapter{
		out:    out,
		grant:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		revoke: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		plain:  lipgloss.NewStyle(),
	}
}

func (a *ConsoleAdapter) Name() string {
	return "console"
}

func (a *ConsoleAdapter) Send(ctx context.Context, destination string, content string) error {
	style := a.plain
	switch {
	case strings.HasPrefix(content, "✅"):
		style = a.grant
	case strings.HasPrefix(content, "❌"):
		style = a.revoke
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := lipgloss.Fprintln(a.out, style.Render(content))
	return err
}

func (a *ConsoleAdapter) Health(ctx context.Context) error {
	return nil
}
