package rules

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/crmkit/crm-data-apis/filter"
)

// ConditionKind tags the payload carried by a Condition.
type ConditionKind string

const (
	// KindField compares one record attribute, like a filter rule.
	KindField ConditionKind = "field"
	// KindSearch runs a free-text search over record attributes.
	KindSearch ConditionKind = "search"
	// KindAlways matches every record.
	KindAlways ConditionKind = "always"
)

func (k ConditionKind) IsValid() bool {
	switch k {
	case KindField, KindSearch, KindAlways:
		return true
	}
	return false
}

type FieldCondition struct {
	Field    string          `json:"field" yaml:"field"`
	Operator filter.Operator `json:"operator" yaml:"operator"`
	Value    interface{}     `json:"value,omitempty" yaml:"value,omitempty"`
}

type SearchCondition struct {
	Query string `json:"query" yaml:"query"`
	// Fields defaults to the searchable fields of the entity.
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Condition is one step of a rule's match expression. Exactly one payload
// is set, the one matching Kind.
type Condition struct {
	ID        string           `json:"id" yaml:"id"`
	Kind      ConditionKind    `json:"kind" yaml:"kind"`
	Connector filter.Connector `json:"connector,omitempty" yaml:"connector,omitempty"`
	Field     *FieldCondition  `json:"field,omitempty" yaml:"field,omitempty"`
	Search    *SearchCondition `json:"search,omitempty" yaml:"search,omitempty"`
}

// FieldMatch builds a field condition joined with AND.
func FieldMatch(field string, op filter.Operator, value interface{}) Condition {
	return Condition{
		ID:        uuid.New().String(),
		Kind:      KindField,
		Connector: filter.And,
		Field:     &FieldCondition{Field: field, Operator: op, Value: value},
	}
}

// SearchMatch builds a free-text condition joined with AND.
func SearchMatch(query string, fields ...string) Condition {
	return Condition{
		ID:        uuid.New().String(),
		Kind:      KindSearch,
		Connector: filter.And,
		Search:    &SearchCondition{Query: query, Fields: fields},
	}
}

func Always() Condition {
	return Condition{ID: uuid.New().String(), Kind: KindAlways, Connector: filter.And}
}

// Or returns the condition joined with OR.
func (c Condition) Or() Condition {
	c.Connector = filter.Or
	return c
}

// FilterRule converts a field condition into the equivalent filter rule.
func (c Condition) FilterRule() (filter.Rule, bool) {
	if c.Kind != KindField || c.Field == nil {
		return filter.Rule{}, false
	}
	return filter.Rule{
		Field:     c.Field.Field,
		Operator:  c.Field.Operator,
		Value:     c.Field.Value,
		Connector: c.Connector,
	}, true
}

// Describe renders the condition as text without its connector.
func (c Condition) Describe(registry *filter.Registry) string {
	switch c.Kind {
	case KindField:
		if rule, ok := c.FilterRule(); ok {
			return filter.DescribeRule(rule, registry)
		}
	case KindSearch:
		if c.Search != nil {
			return fmt.Sprintf("text matches %q", c.Search.Query)
		}
	case KindAlways:
		return "always"
	}
	return string(c.Kind)
}

// ValidateCondition checks the condition payload. Field names and operator
// compatibility are checked only when a registry is given.
func ValidateCondition(c Condition, registry *filter.Registry) error {
	if !c.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidConditionKind, c.Kind)
	}
	if !c.Connector.IsValid() {
		return fmt.Errorf("%w: %q", filter.ErrUnknownConnector, c.Connector)
	}

	switch c.Kind {
	case KindField:
		if c.Field == nil || c.Search != nil {
			return fmt.Errorf("%w: field condition requires only a field payload", ErrInvalidPayload)
		}
		rule, _ := c.FilterRule()
		return filter.ValidateRule(rule, registry)
	case KindSearch:
		if c.Search == nil || c.Field != nil {
			return fmt.Errorf("%w: search condition requires only a search payload", ErrInvalidPayload)
		}
		if strings.TrimSpace(c.Search.Query) == "" {
			return fmt.Errorf("%w: search query is required", ErrInvalidPayload)
		}
		if registry != nil {
			for _, name := range c.Search.Fields {
				if !registry.Has(name) {
					return fmt.Errorf("%w: %s", filter.ErrUnknownField, name)
				}
			}
		}
	case KindAlways:
		if c.Field != nil || c.Search != nil {
			return fmt.Errorf("%w: always condition takes no payload", ErrInvalidPayload)
		}
	}
	return nil
}

func cloneCondition(c Condition) Condition {
	if c.Field != nil {
		field := *c.Field
		field.Value = cloneValue(field.Value)
		c.Field = &field
	}
	if c.Search != nil {
		search := *c.Search
		search.Fields = append([]string(nil), search.Fields...)
		c.Search = &search
	}
	return c
}

func cloneValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []interface{}:
		return append([]interface{}(nil), v...)
	case []string:
		return append([]string(nil), v...)
	}
	return value
}
