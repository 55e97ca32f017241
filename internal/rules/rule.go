package rules

import (
	"fmt"
	"strings"

	"github.com/harunnryd/statusrole/internal/errors"
)

// Rule binds a text pattern to the role granted while a member's text contains it.
type Rule struct {
	Pattern       string
	RoleID        string
	CaseSensitive bool
}

func (r Rule) String() string {
	if r.CaseSensitive {
		return fmt.Sprintf("%q -> %s (case-sensitive)", r.Pattern, r.RoleID)
	}
	return fmt.Sprintf("%q -> %s", r.Pattern, r.RoleID)
}

// Matches reports whether text contains the rule's pattern under the rule's case policy.
// Empty text never matches.
func Matches(text string, r Rule) bool {
	if text == "" || r.Pattern == "" {
		return false
	}
	if r.CaseSensitive {
		return strings.Contains(text, r.Pattern)
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(r.Pattern))
}

// RuleSet is an ordered, immutable list of rules.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates and copies rules. An empty list or a rule with an empty
// pattern or role ID is rejected.
func NewRuleSet(rs []Rule) (*RuleSet, error) {
	if len(rs) == 0 {
		return nil, errors.InvalidInput("rule set cannot be empty")
	}

	copied := make([]Rule, 0, len(rs))
	for i, r := range rs {
		if r.Pattern == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("rule %d: pattern cannot be empty", i))
		}
		if strings.TrimSpace(r.RoleID) == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("rule %d: role id cannot be empty", i))
		}
		copied = append(copied, r)
	}
	return &RuleSet{rules: copied}, nil
}

// Rules returns a copy of the rules in configured order.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Matching returns the rules whose pattern is contained in text.
func (s *RuleSet) Matching(text string) []Rule {
	var out []Rule
	for _, r := range s.rules {
		if Matches(text, r) {
			out = append(out, r)
		}
	}
	return out
}
