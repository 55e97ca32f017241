package member

import (
	"testing"

	"github.com/harunnryd/statusrole/internal/rules"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryText(t *testing.T) {
	tests := []struct {
		name       string
		activities []Activity
		want       string
		wantOK     bool
	}{
		{name: "no activities", wantOK: false},
		{
			name:       "custom status",
			activities: []Activity{CustomStatus("Listening to LoFi beats")},
			want:       "Listening to LoFi beats",
			wantOK:     true,
		},
		{
			name:       "rich presence state",
			activities: []Activity{RichPresence("Spotify", "Daft Punk", "One More Time")},
			want:       "Daft Punk",
			wantOK:     true,
		},
		{
			name:       "first activity wins over later custom status",
			activities: []Activity{RichPresence("Game", "In a match", ""), CustomStatus("vip")},
			want:       "In a match",
			wantOK:     true,
		},
		{
			name:       "skips activities without status text",
			activities: []Activity{Other("Minecraft"), RichPresence("Game", "", "details only"), CustomStatus("later")},
			want:       "later",
			wantOK:     true,
		},
		{
			name:       "empty custom status is skipped",
			activities: []Activity{CustomStatus(""), Other("Game")},
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnapshot("1", "g", "Alice", "alice", tt.activities, nil)
			got, ok := s.PrimaryText()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllTexts_Order(t *testing.T) {
	s := NewSnapshot("1", "g", "Alice", "alice", []Activity{
		CustomStatus("custom"),
		RichPresence("App", "", "the details"),
		RichPresence("App only", "", ""),
		Other("Minecraft"),
		Other(""),
	}, nil)

	assert.Equal(t, []string{"custom", "the details", "App only", "Minecraft", "Alice", "alice"}, s.AllTexts())
}

func TestAllTexts_EndsWithAccountName(t *testing.T) {
	same := NewSnapshot("1", "g", "bob", "bob", nil, nil)
	assert.Equal(t, []string{"bob"}, same.AllTexts())

	differs := NewSnapshot("1", "g", "Bobby", "bob", []Activity{CustomStatus("hi")}, nil)
	texts := differs.AllTexts()
	assert.Equal(t, "bob", texts[len(texts)-1])
	assert.Equal(t, "Bobby", texts[len(texts)-2])
}

func TestMatchesRule(t *testing.T) {
	s := NewSnapshot("1", "g", "VIP Carol", "carol", []Activity{Other("Chess")}, nil)

	assert.True(t, s.MatchesRule(rules.Rule{Pattern: "vip", RoleID: "R"}))
	assert.True(t, s.MatchesRule(rules.Rule{Pattern: "chess", RoleID: "R"}))
	assert.True(t, s.MatchesRule(rules.Rule{Pattern: "carol", RoleID: "R"}))
	assert.False(t, s.MatchesRule(rules.Rule{Pattern: "vip", RoleID: "R", CaseSensitive: true}))
	assert.False(t, s.MatchesRule(rules.Rule{Pattern: "lofi", RoleID: "R"}))
}

func TestHasRoleAndName(t *testing.T) {
	s := NewSnapshot("42", "g", "", "dave", nil, []string{"r1", "r2"})

	assert.True(t, s.HasRole("r1"))
	assert.False(t, s.HasRole("r3"))
	assert.Equal(t, "dave", s.Name())
	assert.Equal(t, "42", Snapshot{ID: "42"}.Name())
}
