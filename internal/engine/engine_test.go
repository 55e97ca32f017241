package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/ingress"
	"github.com/harunnryd/statusrole/internal/member"
	"github.com/harunnryd/statusrole/internal/metrics"
	"github.com/harunnryd/statusrole/internal/rules"
	"github.com/harunnryd/statusrole/internal/statuscache"
	"github.com/harunnryd/statusrole/internal/store"
)

type fakeGuild struct {
	mu      sync.Mutex
	roles   map[string]string
	failAdd map[string]error
	failDel map[string]error
	calls   []string
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		roles:   map[string]string{"R1": "Lofi", "R2": "VIP", "R3": "Gamer"},
		failAdd: map[string]error{},
		failDel: map[string]error{},
	}
}

func (g *fakeGuild) Role(ctx context.Context, roleID string) (Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.roles[roleID]
	if !ok {
		return Role{}, errors.NotFound("role " + roleID)
	}
	return Role{ID: roleID, Name: name}, nil
}

func (g *fakeGuild) AddRole(ctx context.Context, memberID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "add:"+memberID+":"+roleID)
	return g.failAdd[roleID]
}

func (g *fakeGuild) RemoveRole(ctx context.Context, memberID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "remove:"+memberID+":"+roleID)
	return g.failDel[roleID]
}

func (g *fakeGuild) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type fakeSink struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (s *fakeSink) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
	return s.err
}

func (s *fakeSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

type fakeRecorder struct {
	mu          sync.Mutex
	transitions []store.Transition
}

func (r *fakeRecorder) Record(ctx context.Context, t store.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return nil
}

type fixture struct {
	engine   *Engine
	cache    *statuscache.Memory
	guild    *fakeGuild
	sink     *fakeSink
	recorder *fakeRecorder
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, rs ...rules.Rule) *fixture {
	t.Helper()
	if len(rs) == 0 {
		rs = []rules.Rule{
			{Pattern: "lofi", RoleID: "R1"},
			{Pattern: "vip", RoleID: "R2"},
		}
	}
	set, err := rules.NewRuleSet(rs)
	require.NoError(t, err)

	f := &fixture{
		cache:    statuscache.New(),
		guild:    newFakeGuild(),
		sink:     &fakeSink{},
		recorder: &fakeRecorder{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	f.engine, err = New(Config{GuildID: "G", Rules: set}, f.cache, f.guild, f.sink,
		WithRecorder(f.recorder), WithMetrics(f.metrics))
	require.NoError(t, err)
	return f
}

func custom(id, text string, roles ...string) member.Snapshot {
	var acts []member.Activity
	if text != "" {
		acts = append(acts, member.CustomStatus(text))
	}
	return member.NewSnapshot(id, "G", "", "user"+id, acts, roles)
}

func TestNew_Validates(t *testing.T) {
	set, err := rules.NewRuleSet([]rules.Rule{{Pattern: "lofi", RoleID: "R1"}})
	require.NoError(t, err)

	_, err = New(Config{Rules: set}, statuscache.New(), newFakeGuild(), &fakeSink{})
	assert.True(t, errors.IsCategory(err, errors.ErrInvalidInput))

	_, err = New(Config{GuildID: "G"}, statuscache.New(), newFakeGuild(), &fakeSink{})
	assert.Error(t, err)

	_, err = New(Config{GuildID: "G", Rules: set}, nil, newFakeGuild(), &fakeSink{})
	assert.Error(t, err)

	e, err := New(Config{GuildID: "G", Rules: set}, statuscache.New(), newFakeGuild(), &fakeSink{})
	require.NoError(t, err)
	assert.Equal(t, RevokeConfirmed, e.presenceRevoke)
	assert.Equal(t, RevokeAlways, e.profileRevoke)
}

func TestPresenceUpdate_LofiLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.PresenceUpdate(ctx, custom("m1", "Listening to LoFi beats"))
	assert.Equal(t, []string{"add:m1:R1"}, f.guild.Calls())
	cached, ok := f.cache.Get("m1")
	require.True(t, ok)
	assert.Equal(t, "Listening to LoFi beats", cached)

	// Activity cleared; the cached prior text matched, so the revoke executes.
	f.engine.PresenceUpdate(ctx, custom("m1", "", "R1"))
	assert.Equal(t, []string{"add:m1:R1", "remove:m1:R1"}, f.guild.Calls())
	_, ok = f.cache.Get("m1")
	assert.False(t, ok, "cache entry must be cleared when no primary text remains")

	lines := f.sink.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "✅ **userm1** set their status/activity/profile to contain `lofi` and received the **Lofi** role!", lines[0])
	assert.Equal(t, "❌ **userm1** removed `lofi` from their profile and lost the **Lofi** role!", lines[1])
}

func TestPresenceUpdate_RevokeWhenStatusChangesWithoutClearing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cache.Set("m1", "Listening to LoFi beats")
	f.engine.PresenceUpdate(ctx, custom("m1", "Playing chess", "R1"))

	assert.Equal(t, []string{"remove:m1:R1"}, f.guild.Calls())
	cached, _ := f.cache.Get("m1")
	assert.Equal(t, "Playing chess", cached)
}

func TestPresenceUpdate_RevokeGuard(t *testing.T) {
	t.Run("no prior entry", func(t *testing.T) {
		f := newFixture(t)
		f.engine.PresenceUpdate(context.Background(), custom("m1", "", "R1"))

		assert.Empty(t, f.guild.Calls())
		assert.Empty(t, f.sink.Lines())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActionCounter(string(HandlerPresence), "revoke", metrics.OutcomeSuppressed)))
	})

	t.Run("prior entry does not match", func(t *testing.T) {
		f := newFixture(t)
		f.cache.Set("m1", "Playing chess")
		f.engine.PresenceUpdate(context.Background(), custom("m1", "Watching TV", "R1"))

		assert.Empty(t, f.guild.Calls())
		cached, _ := f.cache.Get("m1")
		assert.Equal(t, "Watching TV", cached, "cache is still refreshed when a revoke is suppressed")
	})

	t.Run("grants still apply alongside a suppressed revoke", func(t *testing.T) {
		f := newFixture(t)
		f.engine.PresenceUpdate(context.Background(), custom("m1", "vip only", "R1"))

		assert.Equal(t, []string{"add:m1:R2"}, f.guild.Calls())
	})
}

func TestPresenceUpdate_IgnoresBotsAndOtherGuilds(t *testing.T) {
	f := newFixture(t)

	bot := custom("b1", "lofi")
	bot.IsBot = true
	f.engine.PresenceUpdate(context.Background(), bot)

	other := custom("m1", "lofi")
	other.GuildID = "other"
	f.engine.PresenceUpdate(context.Background(), other)

	assert.Empty(t, f.guild.Calls())
	assert.Equal(t, 0, f.cache.Len())
}

func TestPresenceUpdate_NamesOnlyGrant(t *testing.T) {
	f := newFixture(t)
	s := member.NewSnapshot("m1", "G", "DJ Lofi", "dj", nil, nil)

	f.engine.PresenceUpdate(context.Background(), s)
	assert.Equal(t, []string{"add:m1:R1"}, f.guild.Calls())
	assert.Equal(t, 0, f.cache.Len())
}

func TestMemberUpdate_VipRenameGrants(t *testing.T) {
	f := newFixture(t)
	s := member.NewSnapshot("m1", "G", "the vip", "someone", nil, nil)

	f.engine.MemberUpdate(context.Background(), s)

	assert.Equal(t, []string{"add:m1:R2"}, f.guild.Calls())
	lines := f.sink.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "✅ **the vip** updated their profile to contain `vip` and received the **VIP** role!", lines[0])
	assert.Equal(t, 0, f.cache.Len(), "profile updates never write the cache")
}

func TestMemberUpdate_RevokesUnconditionally(t *testing.T) {
	f := newFixture(t)
	f.cache.Set("m1", "something else")

	f.engine.MemberUpdate(context.Background(), custom("m1", "", "R1", "R2"))

	assert.Equal(t, []string{"remove:m1:R1", "remove:m1:R2"}, f.guild.Calls())
	cached, _ := f.cache.Get("m1")
	assert.Equal(t, "something else", cached, "profile updates never touch the cache")
}

func TestScanMember_GrantsOnlyAndSeedsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.InitialScan(ctx, []member.Snapshot{
		custom("m1", "lofi hip hop"),
		custom("m2", "", "R1", "R2"),
		custom("m3", "VIP lounge", "R1"),
	})

	assert.Equal(t, []string{"add:m1:R1", "add:m3:R2"}, f.guild.Calls())
	assert.Empty(t, f.sink.Lines(), "scan grants are logged locally only")

	cached, ok := f.cache.Get("m1")
	assert.True(t, ok)
	assert.Equal(t, "lofi hip hop", cached)
	_, ok = f.cache.Get("m2")
	assert.False(t, ok)

	for _, tr := range f.recorder.transitions {
		assert.Equal(t, "grant", tr.Action)
		assert.Equal(t, string(HandlerScan), tr.Handler)
	}
}

func TestApply_PermissionFailureContinues(t *testing.T) {
	f := newFixture(t)
	f.guild.failAdd["R1"] = errors.PermissionDenied("missing permissions")

	f.engine.PresenceUpdate(context.Background(), custom("m1", "lofi vip"))

	assert.Equal(t, []string{"add:m1:R1", "add:m1:R2"}, f.guild.Calls())
	lines := f.sink.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "**VIP**")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActionCounter(string(HandlerPresence), "grant", metrics.OutcomeFailed)))
	require.NotEmpty(t, f.recorder.transitions)
	assert.Equal(t, "permission_denied", f.recorder.transitions[0].ErrorCategory)
	assert.Contains(t, f.recorder.transitions[0].Error, "missing permissions")
}

func TestApply_UnexpectedFailureContinues(t *testing.T) {
	f := newFixture(t)
	f.guild.failDel["R1"] = fmt.Errorf("boom")

	f.engine.MemberUpdate(context.Background(), custom("m1", "", "R1", "R2"))

	assert.Equal(t, []string{"remove:m1:R1", "remove:m1:R2"}, f.guild.Calls())
	require.Len(t, f.recorder.transitions, 2)
	assert.Equal(t, metrics.OutcomeFailed, f.recorder.transitions[0].Outcome)
	assert.Equal(t, "boom", f.recorder.transitions[0].Error)
	assert.Equal(t, "unknown", f.recorder.transitions[0].ErrorCategory)
	assert.Equal(t, metrics.OutcomeApplied, f.recorder.transitions[1].Outcome)
}

func TestApply_MissingRoleSkipped(t *testing.T) {
	f := newFixture(t,
		rules.Rule{Pattern: "lofi", RoleID: "GONE"},
		rules.Rule{Pattern: "lofi", RoleID: "R1"},
	)

	f.engine.PresenceUpdate(context.Background(), custom("m1", "lofi"))

	assert.Equal(t, []string{"add:m1:R1"}, f.guild.Calls())
	require.Len(t, f.recorder.transitions, 2)
	assert.Equal(t, metrics.OutcomeSkipped, f.recorder.transitions[0].Outcome)
}

func TestApply_SinkFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.sink.err = fmt.Errorf("channel gone")

	f.engine.PresenceUpdate(context.Background(), custom("m1", "lofi vip"))

	assert.Equal(t, []string{"add:m1:R1", "add:m1:R2"}, f.guild.Calls())
	assert.Len(t, f.sink.Lines(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.LogSendFailures()))
}

func TestCaseSensitiveRule(t *testing.T) {
	f := newFixture(t, rules.Rule{Pattern: "VIP", RoleID: "R2", CaseSensitive: true})

	f.engine.MemberUpdate(context.Background(), member.NewSnapshot("m1", "G", "vip", "someone", nil, nil))
	assert.Empty(t, f.guild.Calls())

	f.engine.MemberUpdate(context.Background(), member.NewSnapshot("m2", "G", "VIP", "someone", nil, nil))
	assert.Equal(t, []string{"add:m2:R2"}, f.guild.Calls())
}

func TestRevokePolicyOverrides(t *testing.T) {
	set, err := rules.NewRuleSet([]rules.Rule{{Pattern: "lofi", RoleID: "R1"}})
	require.NoError(t, err)

	guild := newFakeGuild()
	e, err := New(Config{GuildID: "G", Rules: set, PresenceRevoke: RevokeAlways, ProfileRevoke: RevokeNever},
		statuscache.New(), guild, &fakeSink{})
	require.NoError(t, err)

	e.MemberUpdate(context.Background(), custom("m1", "", "R1"))
	assert.Empty(t, guild.Calls())

	e.PresenceUpdate(context.Background(), custom("m1", "", "R1"))
	assert.Equal(t, []string{"remove:m1:R1"}, guild.Calls())
}

func TestProcess_Dispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Process(ctx, ingress.NewEvent(ingress.KindScan, custom("m1", "lofi"))))
	require.NoError(t, f.engine.Process(ctx, ingress.NewEvent(ingress.KindRescan, custom("m2", "", "R1"))))
	require.NoError(t, f.engine.Process(ctx, ingress.NewEvent(ingress.KindPresence, custom("m3", "vip"))))
	require.NoError(t, f.engine.Process(ctx, ingress.NewEvent(ingress.KindMemberUpdate, custom("m4", "", "R2"))))

	assert.Equal(t, []string{"add:m1:R1", "add:m3:R2", "remove:m4:R2"}, f.guild.Calls())
	assert.Error(t, f.engine.Process(ctx, nil))
	assert.Error(t, f.engine.Process(ctx, ingress.NewEvent(ingress.Kind("bogus"), custom("m5", ""))))
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	f.cache.Set("m1", "lofi")

	planned := f.engine.Preview(custom("m1", "vip", "R1"))
	require.Len(t, planned, 2)
	assert.Equal(t, "R1", planned[0].RoleID)
	assert.True(t, planned[0].Allowed, "prior cached text matched")
	assert.Equal(t, "R2", planned[1].RoleID)
	assert.True(t, planned[1].Allowed)

	planned = f.engine.Preview(custom("m2", "", "R1"))
	require.Len(t, planned, 1)
	assert.False(t, planned[0].Allowed)

	assert.Empty(t, f.guild.Calls(), "preview has no side effects")
	cached, _ := f.cache.Get("m1")
	assert.Equal(t, "lofi", cached)
}

func TestRecorderCapturesTransitionDetails(t *testing.T) {
	f := newFixture(t)
	f.engine.PresenceUpdate(context.Background(), custom("m1", "lofi"))

	require.Len(t, f.recorder.transitions, 1)
	tr := f.recorder.transitions[0]
	assert.Equal(t, "presence", tr.Handler)
	assert.Equal(t, "grant", tr.Action)
	assert.Equal(t, metrics.OutcomeApplied, tr.Outcome)
	assert.Equal(t, "m1", tr.MemberID)
	assert.Equal(t, "R1", tr.RoleID)
	assert.Equal(t, "Lofi", tr.RoleName)
	assert.Equal(t, "lofi", tr.Pattern)
	assert.True(t, strings.HasPrefix(tr.MemberName, "user"))
}
