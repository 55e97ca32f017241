package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunnryd/statusrole/internal/formatter"
)

func runWithOutput(t *testing.T, cmd *cobra.Command, format string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Flags().Set("output", format))
	t.Cleanup(func() {
		cmd.SetOut(nil)
		_ = cmd.Flags().Set("output", string(formatter.OutputFormatTable))
	})

	require.NoError(t, cmd.RunE(cmd, args))
	return out.String()
}

func TestRulesCmd(t *testing.T) {
	withConfig(t, testConfig())

	out := runWithOutput(t, rulesCmd, "table")
	assert.Contains(t, out, "lofi")
	assert.Contains(t, out, "222")

	out = runWithOutput(t, rulesCmd, "json")
	var rows []formatter.RuleRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.True(t, rows[1].CaseSensitive)
}

func TestMatchCmd(t *testing.T) {
	withConfig(t, testConfig())

	out := runWithOutput(t, matchCmd, "json", "chill", "LOFI", "radio")
	var report formatter.MatchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "chill LOFI radio", report.Text)
	assert.True(t, report.Rules[0].Matched)
	assert.False(t, report.Rules[1].Matched)
}

func TestRulesCmd_InvalidOutput(t *testing.T) {
	withConfig(t, testConfig())
	require.NoError(t, rulesCmd.Flags().Set("output", "xml"))
	t.Cleanup(func() { _ = rulesCmd.Flags().Set("output", string(formatter.OutputFormatTable)) })

	assert.Error(t, rulesCmd.RunE(rulesCmd, nil))
}

func TestBuildDaemon_RegistersComponents(t *testing.T) {
	d, err := buildDaemon("ws", testConfig())
	require.NoError(t, err)

	for _, name := range []string{"Store", "Engine", "Ingress", "Workers", "Gateway", "Scheduler", "HTTPServer"} {
		assert.NotNil(t, d.Component(name), name)
	}
}
