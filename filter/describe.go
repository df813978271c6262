package filter

import (
	"fmt"
	"strings"

	"github.com/crmkit/crm-data-apis/types"
)

// Describe renders a rule list as a single line of text, using field labels
// from the registry when one is given.
func Describe(rules []Rule, registry *Registry) string {
	if len(rules) == 0 {
		return "all records"
	}

	var sb strings.Builder
	for i, rule := range rules {
		if i > 0 {
			connector := rule.Connector
			if connector != Or {
				connector = And
			}
			sb.WriteString(" ")
			sb.WriteString(string(connector))
			sb.WriteString(" ")
		}
		sb.WriteString(DescribeRule(rule, registry))
	}
	return sb.String()
}

func DescribeRule(rule Rule, registry *Registry) string {
	label := rule.Field
	if field, ok := registry.Lookup(rule.Field); ok {
		label = field.Label
	}

	switch rule.Operator.ValueKind() {
	case ValueNone:
		return fmt.Sprintf("%s %s", label, rule.Operator.Label())
	case ValueList:
		return fmt.Sprintf("%s %s [%s]", label, rule.Operator.Label(), describeList(rule.Value))
	case ValuePattern:
		return fmt.Sprintf("%s %s /%s/", label, rule.Operator.Label(), types.ToString(rule.Value))
	}
	return fmt.Sprintf("%s %s %s", label, rule.Operator.Label(), describeValue(rule.Value))
}

func describeValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "nothing"
	case string:
		return fmt.Sprintf("%q", v)
	}
	return types.ToString(value)
}

func describeList(value interface{}) string {
	switch v := value.(type) {
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = describeValue(item)
		}
		return strings.Join(parts, ", ")
	case []string:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = describeValue(item)
		}
		return strings.Join(parts, ", ")
	case string:
		items := strings.Split(v, ",")
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = describeValue(strings.TrimSpace(item))
		}
		return strings.Join(parts, ", ")
	}
	return types.ToString(value)
}
