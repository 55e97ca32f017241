package formatter

import (
	"fmt"
	"strconv"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	matchStyle   lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")
	green := lipgloss.Color("42")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		matchStyle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (f *TableFormatter) FormatRules(rows []RuleRow) (string, error) {
	if len(rows) == 0 {
		return "No status roles configured", nil
	}

	t := f.newTable(nil).Headers("#", "Status text", "Role ID", "Case")
	for _, r := range rows {
		t.Row(strconv.Itoa(r.Index), truncateString(r.Pattern, 40), r.RoleID, caseLabel(r.CaseSensitive))
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatMatch(report MatchReport) (string, error) {
	if len(report.Rules) == 0 {
		return "No status roles configured", nil
	}

	t := f.newTable(report.Rules).Headers("#", "Status text", "Role ID", "Case", "Match")
	matched := 0
	for _, r := range report.Rules {
		mark := "-"
		if r.Matched {
			mark = "yes"
			matched++
		}
		t.Row(strconv.Itoa(r.Index), truncateString(r.Pattern, 40), r.RoleID, caseLabel(r.CaseSensitive), mark)
	}
	return fmt.Sprintf("%s\n%d of %d rules match %q", t.String(), matched, len(report.Rules), report.Text), nil
}

// newTable highlights rows whose rule matched when rows is non-nil.
func (f *TableFormatter) newTable(rows []RuleRow) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row >= 0 && row < len(rows) && rows[row].Matched:
				return f.matchStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		})
}

func caseLabel(sensitive bool) string {
	if sensitive {
		return "sensitive"
	}
	return "insensitive"
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
