package formatter

import (
	"encoding/json"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatRules(rows []RuleRow) (string, error) {
	if rows == nil {
		rows = []RuleRow{}
	}
	return marshalJSON(rows)
}

func (f *JSONFormatter) FormatMatch(report MatchReport) (string, error) {
	if report.Rules == nil {
		report.Rules = []RuleRow{}
	}
	return marshalJSON(report)
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
