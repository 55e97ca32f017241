package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/statusrole/internal/config"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed templates/config.yaml
var embeddedDefaultConfig []byte

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the statusrole configuration file.`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Dump fully resolved configuration",
	Long:  `Display current configuration with all defaults applied and environment variables resolved. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return writeConfigYAML(cmd.OutOrStdout(), redactConfigSecrets(loadedCfg))
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration",
	Long:  `Create a default configuration file at $HOME/.statusrole/config.yaml if it doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
		return initConfigFile(cmd.OutOrStdout(), configPath)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return fmt.Errorf("config is invalid: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration is valid (%d status roles, guild %s)\n", len(loadedCfg.StatusRoles), loadedCfg.Discord.GuildID)
		return nil
	},
}

func initConfigFile(out io.Writer, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", filepath.Dir(configPath), err)
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "Config already exists at %s\n", configPath)
		fmt.Fprintln(out, "Use 'statusrole config view' to see current configuration.")
		fmt.Fprintln(out, "To reinitialize, remove the existing config file first.")
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := strings.TrimSpace(string(embeddedDefaultConfig)) + "\n"
	if err := atomic.WriteFile(configPath, bytes.NewReader([]byte(defaultConfig))); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", configPath, err)
	}

	fmt.Fprintf(out, "✓ Initialized config at %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Set DISCORD_BOT_TOKEN (recommended) or discord.bot_token")
	fmt.Fprintln(out, "2. Fill in discord.guild_id, discord.log_channel_id and the status_roles role IDs")
	fmt.Fprintln(out, "3. Run 'statusrole config validate' to check your configuration")
	return nil
}

func writeConfigYAML(out io.Writer, c *config.Config) error {
	if c == nil {
		return fmt.Errorf("config is not initialized; run 'statusrole config init' first")
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

func loadConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.Load(cmd)
}

func redactConfigSecrets(in *config.Config) *config.Config {
	if in == nil {
		return nil
	}

	out := *in
	out.Discord.BotToken = maskSecret(out.Discord.BotToken)
	out.Mirrors.Slack.BotToken = maskSecret(out.Mirrors.Slack.BotToken)
	out.Mirrors.Telegram.BotToken = maskSecret(out.Mirrors.Telegram.BotToken)
	return &out
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
