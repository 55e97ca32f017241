package engine

import (
	"fmt"
	"strings"

	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/rules"
)

// RevokePolicy decides whether a computed revoke may be executed.
//
// Presence updates default to RevokeConfirmed and profile updates to RevokeAlways.
// The two are kept separate on purpose: a presence revoke must be backed by a cached
// status that earned the role, a profile revoke has no cached state to consult.
type RevokePolicy string

const (
	// RevokeConfirmed allows a revoke only when the previously cached primary text matched the rule.
	RevokeConfirmed RevokePolicy = "confirmed"
	// RevokeAlways executes every computed revoke.
	RevokeAlways RevokePolicy = "always"
	// RevokeNever drops every computed revoke.
	RevokeNever RevokePolicy = "never"
)

func ParseRevokePolicy(s string) (RevokePolicy, error) {
	switch p := RevokePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RevokeConfirmed, RevokeAlways, RevokeNever:
		return p, nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("unknown revoke policy %q (want confirmed, always or never)", s))
	}
}

// Allows reports whether a revoke for r may run given the previously cached text.
func (p RevokePolicy) Allows(previous string, r rules.Rule) bool {
	switch p {
	case RevokeAlways:
		return true
	case RevokeConfirmed:
		return previous != "" && rules.Matches(previous, r)
	default:
		return false
	}
}
