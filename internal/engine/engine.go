package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/ingress"
	"github.com/harunnryd/statusrole/internal/member"
	"github.com/harunnryd/statusrole/internal/metrics"
	"github.com/harunnryd/statusrole/internal/reconcile"
	"github.com/harunnryd/statusrole/internal/rules"
	"github.com/harunnryd/statusrole/internal/statuscache"
	"github.com/harunnryd/statusrole/internal/store"
)

// Handler names the event path an action was produced by.
type Handler string

const (
	HandlerPresence Handler = "presence"
	HandlerProfile  Handler = "profile"
	HandlerScan     Handler = "scan"
	HandlerRescan   Handler = "rescan"
)

type Config struct {
	GuildID        string
	Rules          *rules.RuleSet
	PresenceRevoke RevokePolicy
	ProfileRevoke  RevokePolicy
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine applies the rule set to member events. It is safe for concurrent use as long as
// events for one member are delivered serially.
type Engine struct {
	guildID        string
	rules          *rules.RuleSet
	presenceRevoke RevokePolicy
	profileRevoke  RevokePolicy

	cache    statuscache.Store
	guild    Guild
	sink     LogSink
	recorder Recorder
	metrics  *metrics.Metrics
}

func New(cfg Config, cache statuscache.Store, guild Guild, sink LogSink, opts ...Option) (*Engine, error) {
	if strings.TrimSpace(cfg.GuildID) == "" {
		return nil, errors.InvalidInput("guild id is required")
	}
	if cfg.Rules == nil || cfg.Rules.Len() == 0 {
		return nil, errors.InvalidInput("rule set is required")
	}
	if cache == nil || guild == nil || sink == nil {
		return nil, errors.InvalidInput("cache, guild and log sink are required")
	}
	if cfg.PresenceRevoke == "" {
		cfg.PresenceRevoke = RevokeConfirmed
	}
	if cfg.ProfileRevoke == "" {
		cfg.ProfileRevoke = RevokeAlways
	}

	e := &Engine{
		guildID:        cfg.GuildID,
		rules:          cfg.Rules,
		presenceRevoke: cfg.PresenceRevoke,
		profileRevoke:  cfg.ProfileRevoke,
		cache:          cache,
		guild:          guild,
		sink:           sink,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) GuildID() string {
	return e.guildID
}

func (e *Engine) Rules() *rules.RuleSet {
	return e.rules
}

// Process dispatches a queued event to its handler.
func (e *Engine) Process(ctx context.Context, evt *ingress.Event) error {
	if evt == nil {
		return errors.InvalidInput("event is nil")
	}
	e.metrics.ObserveEvent(string(evt.Kind))

	switch evt.Kind {
	case ingress.KindPresence:
		e.PresenceUpdate(ctx, evt.Member)
	case ingress.KindMemberUpdate:
		e.MemberUpdate(ctx, evt.Member)
	case ingress.KindScan:
		e.ScanMember(ctx, evt.Member, HandlerScan)
	case ingress.KindRescan:
		e.ScanMember(ctx, evt.Member, HandlerRescan)
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown event kind %q", evt.Kind))
	}
	return nil
}

func (e *Engine) applies(s member.Snapshot) bool {
	return !s.IsBot && s.GuildID == e.guildID
}

// PresenceUpdate refreshes the member's cached status and reconciles. Grants always run;
// revokes run only when the presence revoke policy accepts the previously cached text.
func (e *Engine) PresenceUpdate(ctx context.Context, s member.Snapshot) {
	if !e.applies(s) {
		return
	}

	current, _ := s.PrimaryText()
	previous, _ := e.cache.Swap(s.ID, current)
	e.metrics.SetCacheEntries(e.cache.Len())

	for _, a := range reconcile.Reconcile(s, e.rules) {
		if a.Kind == reconcile.Revoke && !e.presenceRevoke.Allows(previous, a.Rule) {
			e.suppress(ctx, HandlerPresence, s, a)
			continue
		}
		e.apply(ctx, HandlerPresence, s, a, true)
	}
}

// MemberUpdate reconciles a profile change against the live snapshot. The status cache
// is neither read nor written.
func (e *Engine) MemberUpdate(ctx context.Context, s member.Snapshot) {
	if !e.applies(s) {
		return
	}

	for _, a := range reconcile.Reconcile(s, e.rules) {
		if a.Kind == reconcile.Revoke && !e.profileRevoke.Allows("", a.Rule) {
			e.suppress(ctx, HandlerProfile, s, a)
			continue
		}
		e.apply(ctx, HandlerProfile, s, a, true)
	}
}

// ScanMember seeds the cache with the member's primary text and applies grants only.
func (e *Engine) ScanMember(ctx context.Context, s member.Snapshot, h Handler) {
	if !e.applies(s) {
		return
	}

	current, _ := s.PrimaryText()
	e.cache.Set(s.ID, current)
	e.metrics.SetCacheEntries(e.cache.Len())

	for _, a := range reconcile.Grants(reconcile.Reconcile(s, e.rules)) {
		e.apply(ctx, h, s, a, false)
	}
}

// InitialScan runs ScanMember for every member in order.
func (e *Engine) InitialScan(ctx context.Context, members []member.Snapshot) {
	slog.Info("Performing initial status and text scan...", "members", len(members))
	for _, s := range members {
		if ctx.Err() != nil {
			slog.Warn("Initial scan cancelled", "reason", ctx.Err())
			return
		}
		e.ScanMember(ctx, s, HandlerScan)
	}
	slog.Info("Initial status and text scan completed", "cached", e.cache.Len())
}

// Planned is a reconciled action annotated with whether the presence path would execute it.
type Planned struct {
	reconcile.Action
	Allowed bool
}

// Preview reports what a presence update would do for s right now, without side effects.
func (e *Engine) Preview(s member.Snapshot) []Planned {
	previous, _ := e.cache.Get(s.ID)
	actions := reconcile.Reconcile(s, e.rules)
	out := make([]Planned, 0, len(actions))
	for _, a := range actions {
		allowed := a.Kind == reconcile.Grant || e.presenceRevoke.Allows(previous, a.Rule)
		out = append(out, Planned{Action: a, Allowed: allowed})
	}
	return out
}

func (e *Engine) apply(ctx context.Context, h Handler, s member.Snapshot, a reconcile.Action, announce bool) {
	role, err := e.guild.Role(ctx, a.RoleID)
	if err != nil {
		level := slog.LevelDebug
		if h == HandlerPresence {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "Role not found", "role_id", a.RoleID, "handler", h, "error", err)
		e.finish(ctx, h, s, a, Role{ID: a.RoleID}, metrics.OutcomeSkipped, err)
		return
	}

	var done, denied, failed string
	if a.Kind == reconcile.Grant {
		err = e.guild.AddRole(ctx, s.ID, role.ID)
		done = fmt.Sprintf("Added role %s to %s", role.Name, s.Name())
		denied = fmt.Sprintf("No permission to add role %s to %s", role.Name, s.Name())
		failed = fmt.Sprintf("Error adding role to %s", s.Name())
	} else {
		err = e.guild.RemoveRole(ctx, s.ID, role.ID)
		done = fmt.Sprintf("Removed role %s from %s", role.Name, s.Name())
		denied = fmt.Sprintf("No permission to remove role %s from %s", role.Name, s.Name())
		failed = fmt.Sprintf("Error removing role from %s", s.Name())
	}

	if err != nil {
		if errors.IsCategory(err, errors.ErrPermissionDenied) {
			slog.Error(denied, "member_id", s.ID, "role_id", role.ID, "handler", h)
		} else {
			slog.Error(failed, "member_id", s.ID, "role_id", role.ID, "handler", h, "error", err)
		}
		e.finish(ctx, h, s, a, role, metrics.OutcomeFailed, err)
		return
	}

	slog.Info(done, "member_id", s.ID, "role_id", role.ID, "rule", a.Rule.Pattern, "handler", h)
	e.finish(ctx, h, s, a, role, metrics.OutcomeApplied, nil)

	if !announce {
		return
	}
	var line string
	if a.Kind == reconcile.Grant {
		line = grantMessage(h, s.Name(), a.Rule.Pattern, role.Name)
	} else {
		line = revokeMessage(s.Name(), a.Rule.Pattern, role.Name)
	}
	e.announce(ctx, line)
}

func (e *Engine) suppress(ctx context.Context, h Handler, s member.Snapshot, a reconcile.Action) {
	slog.Debug("Revoke suppressed", "member_id", s.ID, "role_id", a.RoleID, "rule", a.Rule.Pattern, "handler", h)
	e.finish(ctx, h, s, a, Role{ID: a.RoleID}, metrics.OutcomeSuppressed, nil)
}

func (e *Engine) announce(ctx context.Context, line string) {
	if err := e.sink.Send(ctx, line); err != nil {
		slog.Error("Error sending log message", "error", err)
		e.metrics.ObserveLogSendFailure()
	}
}

func (e *Engine) finish(ctx context.Context, h Handler, s member.Snapshot, a reconcile.Action, role Role, outcome string, cause error) {
	e.metrics.ObserveAction(string(h), string(a.Kind), outcome)
	if e.recorder == nil {
		return
	}

	t := store.Transition{
		Handler:    string(h),
		Action:     string(a.Kind),
		Outcome:    outcome,
		MemberID:   s.ID,
		MemberName: s.Name(),
		RoleID:     a.RoleID,
		RoleName:   role.Name,
		Pattern:    a.Rule.Pattern,
	}
	if cause != nil {
		t.Error = cause.Error()
		t.ErrorCategory = errors.Category(cause)
	}
	if err := e.recorder.Record(ctx, t); err != nil {
		slog.Warn("Failed to journal transition", "member_id", s.ID, "role_id", a.RoleID, "error", err)
	}
}
