package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/statusrole/internal/engine"
	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/member"
	"github.com/harunnryd/statusrole/internal/reconcile"
)

// MemberLookup fetches a live snapshot of a guild member.
type MemberLookup interface {
	Snapshot(ctx context.Context, guildID, memberID string) (member.Snapshot, error)
}

// RegisterBuiltins installs the statusroles and statuscheck commands.
func RegisterBuiltins(r *Router, eng *engine.Engine, lookup MemberLookup) {
	r.Register("statusroles", func(ctx context.Context, req Request) (string, error) {
		return listRules(eng), nil
	})
	r.Register("statuscheck", func(ctx context.Context, req Request) (string, error) {
		return checkMember(ctx, eng, lookup, req)
	})
}

func listRules(eng *engine.Engine) string {
	var b strings.Builder
	b.WriteString("**Status roles**\n")
	for i, rule := range eng.Rules().Rules() {
		mode := "case-insensitive"
		if rule.CaseSensitive {
			mode = "case-sensitive"
		}
		fmt.Fprintf(&b, "%d. `%s` → <@&%s> (%s)\n", i+1, rule.Pattern, rule.RoleID, mode)
	}
	return strings.TrimRight(b.String(), "\n")
}

func checkMember(ctx context.Context, eng *engine.Engine, lookup MemberLookup, req Request) (string, error) {
	if lookup == nil {
		return "", errors.Internal("member lookup not configured")
	}
	if req.GuildID != eng.GuildID() {
		return "", errors.InvalidInput("command issued outside the configured guild")
	}

	memberID := req.AuthorID
	if len(req.Args) > 0 {
		memberID = strings.Trim(req.Args[0], "<@!>")
	}
	if memberID == "" {
		return "", errors.InvalidInput("member id is required")
	}

	s, err := lookup.Snapshot(ctx, req.GuildID, memberID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", s.Name())
	if text, ok := s.PrimaryText(); ok {
		fmt.Fprintf(&b, " status: `%s`\n", text)
	} else {
		b.WriteString(" has no status text\n")
	}

	planned := eng.Preview(s)
	if len(planned) == 0 {
		b.WriteString("Roles are in sync.")
		return b.String(), nil
	}
	for _, p := range planned {
		sign := "+"
		if p.Kind == reconcile.Revoke {
			sign = "-"
		}
		fmt.Fprintf(&b, "%s <@&%s> for `%s`", sign, p.RoleID, p.Rule.Pattern)
		if !p.Allowed {
			b.WriteString(" (held until the status that earned it is seen)")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
