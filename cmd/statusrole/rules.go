package main

import (
	"fmt"
	"strings"

	"github.com/harunnryd/statusrole/internal/formatter"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List configured status roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		rs, err := loadedCfg.RuleSet()
		if err != nil {
			return err
		}

		out, err := f.FormatRules(formatter.Rows(rs))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <text>",
	Short: "Show which status roles a text would earn",
	Long:  `Checks a status, activity or name text against every configured rule without connecting to Discord.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return err
		}
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		rs, err := loadedCfg.RuleSet()
		if err != nil {
			return err
		}

		out, err := f.FormatMatch(formatter.Match(rs, strings.Join(args, " ")))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func outputFormatter(cmd *cobra.Command) (formatter.RuleFormatter, error) {
	value, _ := cmd.Flags().GetString("output")
	format, err := formatter.ParseOutputFormat(value)
	if err != nil {
		return nil, err
	}
	return formatter.NewFormatterFactory().Create(format)
}

func init() {
	for _, c := range []*cobra.Command{rulesCmd, matchCmd} {
		c.Flags().StringP("output", "o", string(formatter.OutputFormatTable), "output format (table, json, yaml)")
		rootCmd.AddCommand(c)
	}
}
