package reconcile

import (
	"testing"

	"github.com/harunnryd/statusrole/internal/member"
	"github.com/harunnryd/statusrole/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRules(t *testing.T, rs ...rules.Rule) *rules.RuleSet {
	t.Helper()
	set, err := rules.NewRuleSet(rs)
	require.NoError(t, err)
	return set
}

func TestReconcile_GrantsFromNamesOnly(t *testing.T) {
	set := mustRules(t,
		rules.Rule{Pattern: "vip", RoleID: "R2"},
		rules.Rule{Pattern: "lofi", RoleID: "R1"},
		rules.Rule{Pattern: "erin", RoleID: "R3"},
	)
	s := member.NewSnapshot("m1", "g", "VIP Erin", "erin", nil, nil)

	got := Reconcile(s, set)

	require.Len(t, got, 2)
	assert.Equal(t, Action{Kind: Grant, RoleID: "R2", MemberID: "m1", Rule: set.Rules()[0]}, got[0])
	assert.Equal(t, Action{Kind: Grant, RoleID: "R3", MemberID: "m1", Rule: set.Rules()[2]}, got[1])
	for _, a := range got {
		assert.NotEqual(t, Revoke, a.Kind)
	}
}

func TestReconcile_RevokesUnmatchedHeldRoles(t *testing.T) {
	set := mustRules(t, rules.Rule{Pattern: "lofi", RoleID: "R1"})
	s := member.NewSnapshot("m1", "g", "frank", "frank", []member.Activity{member.CustomStatus("jazz")}, []string{"R1"})

	got := Reconcile(s, set)

	require.Len(t, got, 1)
	assert.Equal(t, Revoke, got[0].Kind)
	assert.Equal(t, "R1", got[0].RoleID)
}

func TestReconcile_NoActionWhenInSync(t *testing.T) {
	set := mustRules(t, rules.Rule{Pattern: "lofi", RoleID: "R1"}, rules.Rule{Pattern: "vip", RoleID: "R2"})
	s := member.NewSnapshot("m1", "g", "gina", "gina", []member.Activity{member.CustomStatus("LOFI")}, []string{"R1"})

	assert.Empty(t, Reconcile(s, set))
}

func TestReconcile_SharedRoleAcrossRules(t *testing.T) {
	set := mustRules(t, rules.Rule{Pattern: "lofi", RoleID: "R1"}, rules.Rule{Pattern: "chill", RoleID: "R1"})
	s := member.NewSnapshot("m1", "g", "hal", "hal", []member.Activity{member.CustomStatus("chill vibes")}, []string{"R1"})

	got := Reconcile(s, set)

	require.Len(t, got, 1)
	assert.Equal(t, Revoke, got[0].Kind)
	assert.Equal(t, "lofi", got[0].Rule.Pattern)
}

func TestReconcile_Idempotent(t *testing.T) {
	set := mustRules(t, rules.Rule{Pattern: "lofi", RoleID: "R1"}, rules.Rule{Pattern: "vip", RoleID: "R2"})
	s := member.NewSnapshot("m1", "g", "ivy", "ivy", []member.Activity{member.CustomStatus("lofi")}, []string{"R2"})

	first := Reconcile(s, set)
	second := Reconcile(s, set)

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestReconcile_NilRuleSet(t *testing.T) {
	assert.Nil(t, Reconcile(member.Snapshot{ID: "m"}, nil))
}

func TestGrants(t *testing.T) {
	actions := []Action{{Kind: Grant, RoleID: "1"}, {Kind: Revoke, RoleID: "2"}, {Kind: Grant, RoleID: "3"}}

	got := Grants(actions)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].RoleID)
	assert.Equal(t, "3", got[1].RoleID)
}
