package formatter

import (
	"fmt"
	"strings"

	"github.com/harunnryd/statusrole/internal/rules"
)

type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// RuleRow is one configured rule as shown by the CLI.
type RuleRow struct {
	Index         int    `json:"index" yaml:"index"`
	Pattern       string `json:"status_text" yaml:"status_text"`
	RoleID        string `json:"role_id" yaml:"role_id"`
	CaseSensitive bool   `json:"case_sensitive" yaml:"case_sensitive"`
	Matched       bool   `json:"matched" yaml:"matched"`
}

// MatchReport is the result of checking one text against every rule.
type MatchReport struct {
	Text  string    `json:"text" yaml:"text"`
	Rules []RuleRow `json:"rules" yaml:"rules"`
}

type RuleFormatter interface {
	FormatRules([]RuleRow) (string, error)
	FormatMatch(MatchReport) (string, error)
}

// Rows lists rs in configured order.
func Rows(rs *rules.RuleSet) []RuleRow {
	if rs == nil {
		return nil
	}
	out := make([]RuleRow, 0, rs.Len())
	for i, r := range rs.Rules() {
		out = append(out, RuleRow{
			Index:         i + 1,
			Pattern:       r.Pattern,
			RoleID:        r.RoleID,
			CaseSensitive: r.CaseSensitive,
		})
	}
	return out
}

// Match marks which rules text satisfies.
func Match(rs *rules.RuleSet, text string) MatchReport {
	rows := Rows(rs)
	if rs != nil {
		for i, r := range rs.Rules() {
			rows[i].Matched = rules.Matches(text, r)
		}
	}
	return MatchReport{Text: text, Rules: rows}
}

type FormatterFactory struct{}

func NewFormatterFactory() *FormatterFactory {
	return &FormatterFactory{}
}

func (f *FormatterFactory) Create(format OutputFormat) (RuleFormatter, error) {
	switch format {
	case OutputFormatTable:
		return NewTableFormatter(), nil
	case OutputFormatJSON:
		return NewJSONFormatter(), nil
	case OutputFormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", format)
	}
}

func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(s))
	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (supported: table, json, yaml)", s)
	}
}
