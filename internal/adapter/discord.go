package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/oklog/ulid/v2"

	"github.com/harunnryd/statusrole/internal/command"
	"github.com/harunnryd/statusrole/internal/concurrency"
	"github.com/harunnryd/statusrole/internal/engine"
	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/ingress"
	"github.com/harunnryd/statusrole/internal/member"
)

const discordIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildPresences |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

// Submitter queues member events for the engine.
type Submitter interface {
	Submit(ctx context.Context, evt *ingress.Event) error
	SubmitBatch(ctx context.Context, kind ingress.Kind, members []member.Snapshot, onComplete func(queued int)) int
}

type DiscordOptions struct {
	Token        string
	GuildID      string
	LogChannelID string
	Commands     *command.Router
}

// DiscordAdapter owns the gateway session. It turns gateway events into member
// snapshots, serves the Guild port for role changes and delivers log lines.
type DiscordAdapter struct {
	guildID      string
	logChannelID string
	session      *discordgo.Session
	submitter    Submitter
	commands     *command.Router

	mu       sync.RWMutex
	ctx      context.Context
	removers []func()

	scanMu    sync.Mutex
	scanNonce string
	scanBuf   []member.Snapshot
	scanning  atomic.Bool

	guildMissing atomic.Bool
	fetchMember  func(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

func NewDiscordAdapter(opts DiscordOptions, submitter Submitter) (*DiscordAdapter, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.InvalidInput("discord bot token is required")
	}
	session, err := discordgo.New("Bot " + strings.TrimPrefix(token, "Bot "))
	if err != nil {
		return nil, errors.Wrap(err, "create discord session")
	}
	return newDiscordAdapter(session, opts, submitter), nil
}

func newDiscordAdapter(session *discordgo.Session, opts DiscordOptions, submitter Submitter) *DiscordAdapter {
	// Handlers run on the gateway goroutine in arrival order; ingress keeps that
	// order per member from there on.
	session.SyncEvents = true
	session.StateEnabled = true
	session.Identify.Intents = discordIntents
	if session.State != nil {
		session.State.TrackMembers = true
		session.State.TrackPresences = true
		session.State.TrackRoles = true
		session.State.TrackChannels = true
	}

	d := &DiscordAdapter{
		guildID:      opts.GuildID,
		logChannelID: opts.LogChannelID,
		session:      session,
		submitter:    submitter,
		commands:     opts.Commands,
		ctx:          context.Background(),
	}
	d.fetchMember = func(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
		return session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	}
	return d
}

func (d *DiscordAdapter) Name() string {
	return "discord"
}

func (d *DiscordAdapter) LogChannelID() string {
	return d.logChannelID
}

func (d *DiscordAdapter) Start(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.removers = append(d.removers,
		d.session.AddHandler(d.onReady),
		d.session.AddHandler(d.onGuildCreate),
		d.session.AddHandler(d.onGuildMembersChunk),
		d.session.AddHandler(d.onPresenceUpdate),
		d.session.AddHandler(d.onGuildMemberUpdate),
		d.session.AddHandler(d.onMessageCreate),
	)
	d.mu.Unlock()

	if err := d.session.Open(); err != nil {
		return errors.MapDiscordError(err)
	}
	return nil
}

func (d *DiscordAdapter) Stop(ctx context.Context) error {
	d.mu.Lock()
	for _, remove := range d.removers {
		remove()
	}
	d.removers = nil
	d.mu.Unlock()

	if err := d.session.Close(); err != nil {
		return errors.Wrap(err, "close discord session")
	}
	return nil
}

func (d *DiscordAdapter) Health(ctx context.Context) error {
	if d.session == nil {
		return errors.Internal("discord session not initialized")
	}
	if d.guildMissing.Load() {
		return errors.NotFound(fmt.Sprintf("guild %s", d.guildID))
	}
	if !d.session.DataReady {
		return errors.Transient("discord gateway not ready")
	}
	return nil
}

func (d *DiscordAdapter) baseContext() context.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ctx
}

// onReady checks that the configured guild is one the bot belongs to. Without it no
// GUILD_CREATE arrives and the initial scan never runs.
func (d *DiscordAdapter) onReady(s *discordgo.Session, r *discordgo.Ready) {
	var user string
	if r.User != nil {
		user = r.User.String()
	}
	slog.Info("Logged in", "user", user, "guilds", len(r.Guilds))

	for _, g := range r.Guilds {
		if g != nil && g.ID == d.guildID {
			d.guildMissing.Store(false)
			return
		}
	}
	d.guildMissing.Store(true)
	slog.Error(fmt.Sprintf("Guild with ID %s not found!", d.guildID), "guild_id", d.guildID)
}

// onGuildCreate resolves the configured guild and log channel, then requests the
// full member list with presences. The initial scan runs on the last chunk.
func (d *DiscordAdapter) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.ID != d.guildID {
		return
	}
	d.guildMissing.Store(false)

	if _, err := d.channel(s, d.logChannelID); err != nil {
		slog.Error("Log channel not found", "channel_id", d.logChannelID, "error", err)
		return
	}

	if !d.scanning.CompareAndSwap(false, true) {
		slog.Debug("Initial scan already in progress", "guild_id", g.ID)
		return
	}

	nonce := ulid.Make().String()
	d.scanMu.Lock()
	d.scanNonce = nonce
	d.scanBuf = nil
	d.scanMu.Unlock()

	slog.Info("Requesting guild members", "guild", g.Name, "guild_id", g.ID)
	if err := s.RequestGuildMembers(g.ID, "", 0, nonce, true); err != nil {
		slog.Error("Failed to request guild members", "guild_id", g.ID, "error", err)
		d.scanning.Store(false)
	}
}

func (d *DiscordAdapter) onGuildMembersChunk(s *discordgo.Session, c *discordgo.GuildMembersChunk) {
	if c.GuildID != d.guildID {
		return
	}

	d.scanMu.Lock()
	if c.Nonce != d.scanNonce {
		d.scanMu.Unlock()
		return
	}
	d.scanBuf = append(d.scanBuf, chunkSnapshots(c)...)
	last := c.ChunkIndex >= c.ChunkCount-1
	var members []member.Snapshot
	if last {
		members = d.scanBuf
		d.scanBuf = nil
		d.scanNonce = ""
	}
	d.scanMu.Unlock()

	if !last {
		return
	}

	slog.Info("Performing initial status and text scan...", "members", len(members))
	d.submitter.SubmitBatch(d.baseContext(), ingress.KindScan, members, func(queued int) {
		d.scanning.Store(false)
		slog.Info("Initial status and text scan completed", "members", queued)
	})
}

func (d *DiscordAdapter) onPresenceUpdate(s *discordgo.Session, p *discordgo.PresenceUpdate) {
	if p.GuildID != d.guildID || p.User == nil {
		return
	}

	m, err := d.member(d.baseContext(), p.GuildID, p.User.ID)
	if err != nil {
		slog.Debug("Presence for unresolved member", "member_id", p.User.ID, "error", err)
		return
	}

	snap := memberSnapshot(p.GuildID, m, p.Activities)
	d.submit(ingress.NewEvent(ingress.KindPresence, snap))
}

func (d *DiscordAdapter) onGuildMemberUpdate(s *discordgo.Session, u *discordgo.GuildMemberUpdate) {
	if u.Member == nil || u.GuildID != d.guildID || u.User == nil {
		return
	}

	var activities []*discordgo.Activity
	if p, err := s.State.Presence(u.GuildID, u.User.ID); err == nil {
		activities = p.Activities
	}

	snap := memberSnapshot(u.GuildID, u.Member, activities)
	d.submit(ingress.NewEvent(ingress.KindMemberUpdate, snap))
}

func (d *DiscordAdapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if d.commands == nil || m.Message == nil || m.Author == nil {
		return
	}

	msg := command.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		AuthorBot: m.Author.Bot,
		Content:   m.Content,
	}
	ctx := d.baseContext()
	concurrency.SafeGo(func() {
		d.commands.Dispatch(ctx, msg, d.reply)
	}, nil)
}

func (d *DiscordAdapter) reply(ctx context.Context, channelID, text string) error {
	_, err := d.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

func (d *DiscordAdapter) submit(evt *ingress.Event) {
	if err := d.submitter.Submit(d.baseContext(), evt); err != nil {
		slog.Warn("Failed to queue event", "event_id", evt.ID, "kind", evt.Kind, "member_id", evt.Member.ID, "error", err)
	}
}

// Rescan queues every cached member of the guild for an additive rescan.
func (d *DiscordAdapter) Rescan(ctx context.Context) (int, error) {
	members, err := d.cachedMembers()
	if err != nil {
		return 0, err
	}

	queued := d.submitter.SubmitBatch(ctx, ingress.KindRescan, members, func(n int) {
		slog.Info("Rescan completed", "members", n)
	})
	return queued, nil
}

// member returns the state cache entry for userID. The state handler stores members it
// first sees in a presence update without roles or join time; those, and cache misses,
// are fetched over REST and written back to the cache.
func (d *DiscordAdapter) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	m, err := d.session.State.Member(guildID, userID)
	if err == nil && !partialMember(m) {
		return m, nil
	}

	fetched, ferr := d.fetchMember(ctx, guildID, userID)
	if ferr != nil {
		return nil, errors.MapDiscordError(ferr)
	}
	if fetched.GuildID == "" {
		fetched.GuildID = guildID
	}
	if err := d.session.State.MemberAdd(fetched); err != nil {
		slog.Debug("Failed to cache fetched member", "member_id", userID, "error", err)
	}
	return fetched, nil
}

func partialMember(m *discordgo.Member) bool {
	return m.Roles == nil && m.JoinedAt.IsZero()
}

func (d *DiscordAdapter) cachedMembers() ([]member.Snapshot, error) {
	g, err := d.session.State.Guild(d.guildID)
	if err != nil {
		return nil, errors.MapDiscordError(err)
	}

	d.session.State.RLock()
	defer d.session.State.RUnlock()

	presences := make(map[string][]*discordgo.Activity, len(g.Presences))
	for _, p := range g.Presences {
		if p.User != nil {
			presences[p.User.ID] = p.Activities
		}
	}
	out := make([]member.Snapshot, 0, len(g.Members))
	for _, m := range g.Members {
		if m.User == nil {
			continue
		}
		out = append(out, memberSnapshot(d.guildID, m, presences[m.User.ID]))
	}
	return out, nil
}

// Snapshot implements command.MemberLookup.
func (d *DiscordAdapter) Snapshot(ctx context.Context, guildID, memberID string) (member.Snapshot, error) {
	m, err := d.member(ctx, guildID, memberID)
	if err != nil {
		return member.Snapshot{}, err
	}

	var activities []*discordgo.Activity
	if p, err := d.session.State.Presence(guildID, memberID); err == nil {
		activities = p.Activities
	}
	return memberSnapshot(guildID, m, activities), nil
}

// Role implements engine.Guild. The state cache is consulted first.
func (d *DiscordAdapter) Role(ctx context.Context, roleID string) (engine.Role, error) {
	if r, err := d.session.State.Role(d.guildID, roleID); err == nil {
		return engine.Role{ID: r.ID, Name: r.Name}, nil
	}

	roles, err := d.session.GuildRoles(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return engine.Role{}, errors.MapDiscordError(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return engine.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return engine.Role{}, errors.NotFound(fmt.Sprintf("role %s", roleID))
}

func (d *DiscordAdapter) AddRole(ctx context.Context, memberID, roleID string) error {
	return errors.MapDiscordError(d.session.GuildMemberRoleAdd(d.guildID, memberID, roleID, discordgo.WithContext(ctx)))
}

func (d *DiscordAdapter) RemoveRole(ctx context.Context, memberID, roleID string) error {
	return errors.MapDiscordError(d.session.GuildMemberRoleRemove(d.guildID, memberID, roleID, discordgo.WithContext(ctx)))
}

// Send posts content to a channel. It implements OutputAdapter.
func (d *DiscordAdapter) Send(ctx context.Context, channelID string, content string) error {
	if _, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return errors.MapDiscordError(err)
	}
	slog.Debug("Discord message sent", "channel_id", channelID)
	return nil
}

func (d *DiscordAdapter) channel(s *discordgo.Session, channelID string) (*discordgo.Channel, error) {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		return nil, errors.MapDiscordError(err)
	}
	return ch, nil
}

func chunkSnapshots(c *discordgo.GuildMembersChunk) []member.Snapshot {
	presences := make(map[string][]*discordgo.Activity, len(c.Presences))
	for _, p := range c.Presences {
		if p != nil && p.User != nil {
			presences[p.User.ID] = p.Activities
		}
	}

	out := make([]member.Snapshot, 0, len(c.Members))
	for _, m := range c.Members {
		if m == nil || m.User == nil {
			continue
		}
		out = append(out, memberSnapshot(c.GuildID, m, presences[m.User.ID]))
	}
	return out
}

func memberSnapshot(guildID string, m *discordgo.Member, activities []*discordgo.Activity) member.Snapshot {
	var id, account string
	var bot bool
	if m.User != nil {
		id, account, bot = m.User.ID, m.User.Username, m.User.Bot
	}

	snap := member.NewSnapshot(id, guildID, displayName(m), account, convertActivities(activities), m.Roles)
	snap.IsBot = bot
	return snap
}

// displayName is the guild nickname, then the global display name, then the username.
func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func convertActivities(in []*discordgo.Activity) []member.Activity {
	out := make([]member.Activity, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		switch a.Type {
		case discordgo.ActivityTypeCustom:
			// Custom statuses carry the user's text in State; Name is the literal "Custom Status".
			out = append(out, member.CustomStatus(a.State))
		case discordgo.ActivityTypeGame, discordgo.ActivityTypeStreaming, discordgo.ActivityTypeListening,
			discordgo.ActivityTypeWatching, discordgo.ActivityTypeCompeting:
			out = append(out, member.RichPresence(a.Name, a.State, a.Details))
		default:
			out = append(out, member.Other(a.Name))
		}
	}
	return out
}
