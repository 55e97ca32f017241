package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/harunnryd/statusrole/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Discord: config.DiscordConfig{
			BotToken:     "NTk4.secret.token",
			GuildID:      "guild",
			LogChannelID: "logs",
		},
		StatusRoles: []config.StatusRoleConfig{
			{StatusText: "lofi", RoleID: "111"},
			{StatusText: "VIP", RoleID: "222", CaseSensitive: true},
		},
		Engine: config.EngineConfig{
			PresenceRevokePolicy: config.DefaultPresenceRevokePolicy,
			ProfileRevokePolicy:  config.DefaultProfileRevokePolicy,
		},
		Mirrors: config.MirrorsConfig{
			Slack: config.SlackMirrorConfig{BotToken: "xoxb-123456"},
		},
	}
}

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".statusrole", "config.yaml")
	var out bytes.Buffer

	require.NoError(t, initConfigFile(&out, path))
	assert.Contains(t, out.String(), "Initialized config at "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "status_roles:")

	var parsed config.Config
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, "lofi", parsed.StatusRoles[0].StatusText)
	assert.Equal(t, "confirmed", parsed.Engine.PresenceRevokePolicy)

	out.Reset()
	require.NoError(t, os.WriteFile(path, []byte("keep: me\n"), 0644))
	require.NoError(t, initConfigFile(&out, path))
	assert.Contains(t, out.String(), "Config already exists")

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep: me\n", string(data), "existing config must not be overwritten")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abcd"))
	assert.Equal(t, "xo******56", maskSecret("xoxb-12356"))
}

func TestRedactConfigSecrets(t *testing.T) {
	in := testConfig()
	out := redactConfigSecrets(in)

	assert.NotEqual(t, in.Discord.BotToken, out.Discord.BotToken)
	assert.True(t, strings.HasPrefix(out.Discord.BotToken, "NT"))
	assert.Contains(t, out.Mirrors.Slack.BotToken, "*")
	assert.Equal(t, "NTk4.secret.token", in.Discord.BotToken, "input must not be mutated")
	assert.Nil(t, redactConfigSecrets(nil))
}

func TestConfigView(t *testing.T) {
	withConfig(t, testConfig())

	var out bytes.Buffer
	configViewCmd.SetOut(&out)
	t.Cleanup(func() { configViewCmd.SetOut(nil) })

	require.NoError(t, configViewCmd.RunE(configViewCmd, nil))
	assert.Contains(t, out.String(), "guild_id: guild")
	assert.Contains(t, out.String(), "status_text: lofi")
	assert.NotContains(t, out.String(), "NTk4.secret.token")
}

func TestConfigValidate(t *testing.T) {
	withConfig(t, testConfig())
	var out bytes.Buffer
	configValidateCmd.SetOut(&out)
	t.Cleanup(func() { configValidateCmd.SetOut(nil) })

	require.NoError(t, configValidateCmd.RunE(configValidateCmd, nil))
	assert.Contains(t, out.String(), "2 status roles")

	broken := testConfig()
	broken.Discord.GuildID = ""
	cfg = broken
	assert.Error(t, configValidateCmd.RunE(configValidateCmd, nil))
}
