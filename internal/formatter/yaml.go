package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatRules(rows []RuleRow) (string, error) {
	return marshalYAML(rows)
}

func (f *YAMLFormatter) FormatMatch(report MatchReport) (string, error) {
	return marshalYAML(report)
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
