package member

import (
	"github.com/harunnryd/statusrole/internal/rules"
)

// Snapshot is a read-only view of a guild member at event time.
type Snapshot struct {
	ID          string
	GuildID     string
	IsBot       bool
	DisplayName string
	AccountName string
	Activities  []Activity
	Roles       map[string]struct{}
}

// NewSnapshot builds a snapshot with the given role IDs as its current roles.
func NewSnapshot(id, guildID, displayName, accountName string, activities []Activity, roleIDs []string) Snapshot {
	roles := make(map[string]struct{}, len(roleIDs))
	for _, r := range roleIDs {
		roles[r] = struct{}{}
	}
	return Snapshot{
		ID:          id,
		GuildID:     guildID,
		DisplayName: displayName,
		AccountName: accountName,
		Activities:  activities,
		Roles:       roles,
	}
}

func (s Snapshot) HasRole(roleID string) bool {
	_, ok := s.Roles[roleID]
	return ok
}

// PrimaryText returns the member's highest-priority status text: the first
// activity that is a named custom status or carries a state line.
func (s Snapshot) PrimaryText() (string, bool) {
	for _, a := range s.Activities {
		if text := a.statusText(); text != "" {
			return text, true
		}
	}
	return "", false
}

// AllTexts returns every candidate text in priority order. The account name is always last,
// preceded by the display name when the two differ. Empty candidates are skipped.
func (s Snapshot) AllTexts() []string {
	texts := make([]string, 0, len(s.Activities)+2)
	for _, a := range s.Activities {
		if text := a.candidateText(); text != "" {
			texts = append(texts, text)
		}
	}
	if s.DisplayName != "" && s.DisplayName != s.AccountName {
		texts = append(texts, s.DisplayName)
	}
	texts = append(texts, s.AccountName)
	return texts
}

// MatchesRule reports whether any candidate text matches r.
func (s Snapshot) MatchesRule(r rules.Rule) bool {
	for _, text := range s.AllTexts() {
		if rules.Matches(text, r) {
			return true
		}
	}
	return false
}

// Name is the label used in log lines.
func (s Snapshot) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.AccountName != "" {
		return s.AccountName
	}
	return s.ID
}
