package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/pathutil"
	"github.com/harunnryd/statusrole/internal/rules"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

const (
	envPrefix      = "STATUSROLE_"
	appDir         = ".statusrole"
	configFileName = "config.yaml"
)

type Config struct {
	Server      ServerConfig       `koanf:"server" yaml:"server"`
	Discord     DiscordConfig      `koanf:"discord" yaml:"discord"`
	StatusRoles []StatusRoleConfig `koanf:"status_roles" yaml:"status_roles"`
	Engine      EngineConfig       `koanf:"engine" yaml:"engine"`
	Mirrors     MirrorsConfig      `koanf:"mirrors" yaml:"mirrors"`
	Scheduler   SchedulerConfig    `koanf:"scheduler" yaml:"scheduler"`
	Store       StoreConfig        `koanf:"store" yaml:"store"`
	Worker      WorkerConfig       `koanf:"worker" yaml:"worker"`
	Daemon      DaemonConfig       `koanf:"daemon" yaml:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port" yaml:"port"`
	LogLevel        string `koanf:"log_level" yaml:"log_level"`
	ReadTimeout     string `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type DiscordConfig struct {
	BotToken        string `koanf:"bot_token" yaml:"bot_token"`
	GuildID         string `koanf:"guild_id" yaml:"guild_id"`
	LogChannelID    string `koanf:"log_channel_id" yaml:"log_channel_id"`
	CommandPrefix   string `koanf:"command_prefix" yaml:"command_prefix"`
	CommandsEnabled bool   `koanf:"commands_enabled" yaml:"commands_enabled"`
}

// StatusRoleConfig is one configured rule. Field names follow the bot's historical config file.
type StatusRoleConfig struct {
	StatusText    string `koanf:"status_text" yaml:"status_text"`
	RoleID        string `koanf:"role_id" yaml:"role_id"`
	CaseSensitive bool   `koanf:"case_sensitive" yaml:"case_sensitive"`
}

type EngineConfig struct {
	Lanes                int    `koanf:"lanes" yaml:"lanes"`
	QueueSize            int    `koanf:"queue_size" yaml:"queue_size"`
	SubmitTimeout        string `koanf:"submit_timeout" yaml:"submit_timeout"`
	DrainTimeout         string `koanf:"drain_timeout" yaml:"drain_timeout"`
	PresenceRevokePolicy string `koanf:"presence_revoke_policy" yaml:"presence_revoke_policy"`
	ProfileRevokePolicy  string `koanf:"profile_revoke_policy" yaml:"profile_revoke_policy"`
}

type MirrorsConfig struct {
	Console  ConsoleMirrorConfig  `koanf:"console" yaml:"console"`
	Slack    SlackMirrorConfig    `koanf:"slack" yaml:"slack"`
	Telegram TelegramMirrorConfig `koanf:"telegram" yaml:"telegram"`
}

type ConsoleMirrorConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

type SlackMirrorConfig struct {
	Enabled  bool   `koanf:"enabled" yaml:"enabled"`
	BotToken string `koanf:"bot_token" yaml:"bot_token"`
	Channel  string `koanf:"channel" yaml:"channel"`
}

type TelegramMirrorConfig struct {
	Enabled  bool   `koanf:"enabled" yaml:"enabled"`
	BotToken string `koanf:"bot_token" yaml:"bot_token"`
	ChatID   int64  `koanf:"chat_id" yaml:"chat_id"`
}

type SchedulerConfig struct {
	RescanSchedule  string `koanf:"rescan_schedule" yaml:"rescan_schedule"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	JournalEnabled        bool   `koanf:"journal_enabled" yaml:"journal_enabled"`
	LockTimeout           string `koanf:"lock_timeout" yaml:"lock_timeout"`
	LockRetry             string `koanf:"lock_retry" yaml:"lock_retry"`
	LockMaxRetry          int    `koanf:"lock_max_retry" yaml:"lock_max_retry"`
	JournalRotateMaxBytes int64  `koanf:"journal_rotate_max_bytes" yaml:"journal_rotate_max_bytes"`
}

type WorkerConfig struct {
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval" yaml:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout" yaml:"startup_shutdown_timeout"`
	StaleLockTTL           string `koanf:"stale_lock_ttl" yaml:"stale_lock_ttl"`
	WorkspacePath          string `koanf:"workspace_path" yaml:"workspace_path"`
}

const (
	DefaultWorkspaceID                  = "default"
	DefaultServerPort                   = 8080
	DefaultServerLogLevel               = "info"
	DefaultServerReadTimeout            = "10s"
	DefaultServerWriteTimeout           = "10s"
	DefaultServerIdleTimeout            = "60s"
	DefaultServerShutdownTimeout        = "5s"
	DefaultDiscordCommandPrefix         = "!"
	DefaultDiscordCommandsEnabled       = true
	DefaultEngineLanes                  = 8
	DefaultEngineQueueSize              = 256
	DefaultEngineSubmitTimeout          = "2s"
	DefaultEngineDrainTimeout           = "5s"
	DefaultPresenceRevokePolicy         = "confirmed"
	DefaultProfileRevokePolicy          = "always"
	DefaultSchedulerRescanSchedule      = ""
	DefaultSchedulerShutdownTimeout     = "30s"
	DefaultStoreJournalEnabled          = true
	DefaultStoreLockTimeout             = "30s"
	DefaultStoreLockRetry               = "100ms"
	DefaultStoreLockMaxRetry            = 300
	DefaultStoreJournalRotateMaxBytes   = 10 * 1024 * 1024
	DefaultWorkerShutdownTimeout        = "30s"
	DefaultDaemonShutdownTimeout        = "30s"
	DefaultDaemonHealthCheckInterval    = "30s"
	DefaultDaemonStartupShutdownTimeout = "10s"
	DefaultDaemonStaleLockTTL           = "15m"
)

var revokePolicies = map[string]struct{}{"confirmed": {}, "always": {}, "never": {}}

// Defaults returns the hardcoded configuration layer.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                     DefaultServerPort,
		"server.log_level":                DefaultServerLogLevel,
		"server.read_timeout":             DefaultServerReadTimeout,
		"server.write_timeout":            DefaultServerWriteTimeout,
		"server.idle_timeout":             DefaultServerIdleTimeout,
		"server.shutdown_timeout":         DefaultServerShutdownTimeout,
		"discord.command_prefix":          DefaultDiscordCommandPrefix,
		"discord.commands_enabled":        DefaultDiscordCommandsEnabled,
		"engine.lanes":                    DefaultEngineLanes,
		"engine.queue_size":               DefaultEngineQueueSize,
		"engine.submit_timeout":           DefaultEngineSubmitTimeout,
		"engine.drain_timeout":            DefaultEngineDrainTimeout,
		"engine.presence_revoke_policy":   DefaultPresenceRevokePolicy,
		"engine.profile_revoke_policy":    DefaultProfileRevokePolicy,
		"scheduler.rescan_schedule":       DefaultSchedulerRescanSchedule,
		"scheduler.shutdown_timeout":      DefaultSchedulerShutdownTimeout,
		"store.journal_enabled":           DefaultStoreJournalEnabled,
		"store.lock_timeout":              DefaultStoreLockTimeout,
		"store.lock_retry":                DefaultStoreLockRetry,
		"store.lock_max_retry":            DefaultStoreLockMaxRetry,
		"store.journal_rotate_max_bytes":  DefaultStoreJournalRotateMaxBytes,
		"worker.shutdown_timeout":         DefaultWorkerShutdownTimeout,
		"daemon.shutdown_timeout":         DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":    DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout": DefaultDaemonStartupShutdownTimeout,
		"daemon.stale_lock_ttl":           DefaultDaemonStaleLockTTL,
		"daemon.workspace_path":           filepath.Join(os.Getenv("HOME"), appDir, "workspaces"),
	}
}

// DefaultConfigPath is $HOME/.statusrole/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDir, configFileName), nil
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, errors.WrapWithCategory(err, "load config "+configPath, errors.ErrInvalidInput)
		}
	} else if globalPath, err := DefaultConfigPath(); err == nil {
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return envKey(s)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.WrapWithCategory(err, "decode config", errors.ErrInvalidInput)
	}

	if cfg.Discord.BotToken == "" {
		cfg.Discord.BotToken = os.Getenv("DISCORD_BOT_TOKEN")
	}

	workspacePath, err := expandConfiguredPath(cfg.Daemon.WorkspacePath)
	if err != nil {
		return nil, err
	}
	if workspacePath != "" {
		cfg.Daemon.WorkspacePath = workspacePath
	}

	return &cfg, nil
}

// envKey maps STATUSROLE_DISCORD_GUILD_ID to discord.guild_id. The first underscore
// separates the section and the rest is the field name, except under mirrors where
// the second underscore separates the mirror name.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	if section == "mirrors" {
		if mirror, rest, ok := strings.Cut(field, "_"); ok {
			return section + "." + mirror + "." + rest
		}
	}
	return section + "." + field
}

// Validate reports the first fatal configuration problem.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.BotToken) == "" {
		return errors.InvalidInput("discord.bot_token is required (or set DISCORD_BOT_TOKEN)")
	}
	if strings.TrimSpace(c.Discord.GuildID) == "" {
		return errors.InvalidInput("discord.guild_id is required")
	}
	if strings.TrimSpace(c.Discord.LogChannelID) == "" {
		return errors.InvalidInput("discord.log_channel_id is required")
	}
	if _, err := c.RuleSet(); err != nil {
		return err
	}
	if _, ok := revokePolicies[strings.ToLower(c.Engine.PresenceRevokePolicy)]; !ok {
		return errors.InvalidInput(fmt.Sprintf("engine.presence_revoke_policy %q is not one of confirmed, always, never", c.Engine.PresenceRevokePolicy))
	}
	if _, ok := revokePolicies[strings.ToLower(c.Engine.ProfileRevokePolicy)]; !ok {
		return errors.InvalidInput(fmt.Sprintf("engine.profile_revoke_policy %q is not one of confirmed, always, never", c.Engine.ProfileRevokePolicy))
	}
	if c.Mirrors.Slack.Enabled && (c.Mirrors.Slack.BotToken == "" || c.Mirrors.Slack.Channel == "") {
		return errors.InvalidInput("mirrors.slack requires bot_token and channel when enabled")
	}
	if c.Mirrors.Telegram.Enabled && (c.Mirrors.Telegram.BotToken == "" || c.Mirrors.Telegram.ChatID == 0) {
		return errors.InvalidInput("mirrors.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}

// RuleSet converts the configured status roles into an immutable rule set.
func (c *Config) RuleSet() (*rules.RuleSet, error) {
	if len(c.StatusRoles) == 0 {
		return nil, errors.InvalidInput("status_roles must contain at least one rule")
	}
	rs := make([]rules.Rule, 0, len(c.StatusRoles))
	for _, sr := range c.StatusRoles {
		rs = append(rs, rules.Rule{
			Pattern:       sr.StatusText,
			RoleID:        strings.TrimSpace(sr.RoleID),
			CaseSensitive: sr.CaseSensitive,
		})
	}
	return rules.NewRuleSet(rs)
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := pathutil.Expand(trimmed)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
