package reconcile

import (
	"fmt"

	"github.com/harunnryd/statusrole/internal/member"
	"github.com/harunnryd/statusrole/internal/rules"
)

type Kind string

const (
	Grant  Kind = "grant"
	Revoke Kind = "revoke"
)

// Action is a single role change computed for a member. It has no side effects;
// callers decide whether and how to apply it.
type Action struct {
	Kind     Kind
	RoleID   string
	MemberID string
	Rule     rules.Rule
}

func (a Action) String() string {
	return fmt.Sprintf("%s(%s, %s)", a.Kind, a.RoleID, a.MemberID)
}

// Reconcile diffs the roles the member should hold under set against the roles
// they hold, in rule order. It emits a Grant for every matched rule whose role is
// missing and a Revoke for every unmatched rule whose role is present.
func Reconcile(s member.Snapshot, set *rules.RuleSet) []Action {
	if set == nil {
		return nil
	}

	var actions []Action
	for _, r := range set.Rules() {
		shouldHave := s.MatchesRule(r)
		has := s.HasRole(r.RoleID)

		switch {
		case shouldHave && !has:
			actions = append(actions, Action{Kind: Grant, RoleID: r.RoleID, MemberID: s.ID, Rule: r})
		case !shouldHave && has:
			actions = append(actions, Action{Kind: Revoke, RoleID: r.RoleID, MemberID: s.ID, Rule: r})
		}
	}
	return actions
}

// Grants filters actions down to grants.
func Grants(actions []Action) []Action {
	var out []Action
	for _, a := range actions {
		if a.Kind == Grant {
			out = append(out, a)
		}
	}
	return out
}
