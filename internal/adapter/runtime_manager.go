package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/errors"
)

// Target is an output adapter bound to one destination.
type Target struct {
	Adapter     OutputAdapter
	Destination string
}

func (t Target) name() string {
	return t.Adapter.Name() + ":" + t.Destination
}

// RuntimeManager starts the input adapters and fans public log lines out to the
// primary log channel and any configured mirrors.
type RuntimeManager struct {
	mu      sync.RWMutex
	inputs  []InputAdapter
	primary Target
	mirrors []Target
	started bool
}

// NewRuntimeManager wires the Discord adapter as both input and primary output and adds
// the mirrors enabled in cfg.
func NewRuntimeManager(cfg config.MirrorsConfig, discord *DiscordAdapter) (*RuntimeManager, error) {
	if discord == nil {
		return nil, errors.InvalidInput("discord adapter is required")
	}

	var mirrors []Target
	if cfg.Console.Enabled {
		mirrors = append(mirrors, Target{Adapter: NewConsoleAdapter(nil)})
	}
	if cfg.Slack.Enabled {
		if strings.TrimSpace(cfg.Slack.Channel) == "" {
			return nil, errors.InvalidInput("mirrors.slack.channel is required when slack mirror is enabled")
		}
		mirrors = append(mirrors, Target{Adapter: NewSlackAdapter(cfg.Slack.BotToken), Destination: cfg.Slack.Channel})
	}
	if cfg.Telegram.Enabled {
		token := strings.TrimSpace(cfg.Telegram.BotToken)
		if token == "" {
			return nil, errors.InvalidInput("mirrors.telegram.bot_token is required when telegram mirror is enabled")
		}
		mirrors = append(mirrors, Target{Adapter: NewTelegramAdapter(token), Destination: strconv.FormatInt(cfg.Telegram.ChatID, 10)})
	}

	return NewRuntimeManagerWith(Target{Adapter: discord, Destination: discord.LogChannelID()}, mirrors, discord), nil
}

func NewRuntimeManagerWith(primary Target, mirrors []Target, inputs ...InputAdapter) *RuntimeManager {
	return &RuntimeManager{
		inputs:  inputs,
		primary: primary,
		mirrors: dedupeTargets(mirrors),
	}
}

// Send delivers text to the primary log channel and then to every mirror. Only a
// primary failure is returned; mirror failures are logged.
func (m *RuntimeManager) Send(ctx context.Context, text string) error {
	m.mu.RLock()
	primary := m.primary
	mirrors := make([]Target, len(m.mirrors))
	copy(mirrors, m.mirrors)
	m.mu.RUnlock()

	var primaryErr error
	if primary.Adapter != nil {
		primaryErr = primary.Adapter.Send(ctx, primary.Destination, text)
	}

	for _, t := range mirrors {
		if err := t.Adapter.Send(ctx, t.Destination, text); err != nil {
			slog.Warn("Log mirror failed", "mirror", t.Adapter.Name(), "error", err)
		}
	}
	return primaryErr
}

func (m *RuntimeManager) Mirrors() []Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Target, len(m.mirrors))
	copy(out, m.mirrors)
	return out
}

func (m *RuntimeManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	inputs := make([]InputAdapter, len(m.inputs))
	copy(inputs, m.inputs)
	m.mu.Unlock()

	for _, input := range inputs {
		slog.Info("Starting input adapter", "adapter", input.Name())
		if err := input.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", input.Name(), err)
		}
	}
	return nil
}

func (m *RuntimeManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	inputs := make([]InputAdapter, len(m.inputs))
	copy(inputs, m.inputs)
	m.mu.Unlock()

	var errs []string
	for _, input := range inputs {
		if err := input.Stop(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", input.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to stop adapters: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Health checks inputs and the primary output. Mirrors are best effort and not checked.
func (m *RuntimeManager) Health(ctx context.Context) error {
	m.mu.RLock()
	inputs := make([]InputAdapter, len(m.inputs))
	copy(inputs, m.inputs)
	primary := m.primary
	m.mu.RUnlock()

	for _, input := range inputs {
		if err := input.Health(ctx); err != nil {
			return fmt.Errorf("input adapter %s unhealthy: %w", input.Name(), err)
		}
	}
	if primary.Adapter != nil {
		if err := primary.Adapter.Health(ctx); err != nil {
			return fmt.Errorf("output adapter %s unhealthy: %w", primary.Adapter.Name(), err)
		}
	}
	return nil
}

func dedupeTargets(targets []Target) []Target {
	if len(targets) == 0 {
		return nil
	}
	indexByName := make(map[string]int, len(targets))
	ordered := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.Adapter == nil {
			continue
		}
		name := t.name()
		if idx, exists := indexByName[name]; exists {
			ordered[idx] = t
			continue
		}
		indexByName[name] = len(ordered)
		ordered = append(ordered, t)
	}
	return ordered
}
