// Package rules models conditional-logic rules: an ordered list of
// conditions that decide whether a record matches, and the actions a
// matching record triggers. Rules are values; every edit returns a new rule
// and leaves the original untouched.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crmkit/crm-data-apis/filter"
)

// SchemaVersion is the version written into serialized rule documents.
const SchemaVersion = 1

var (
	ErrRuleDeleted          = errors.New("rule is deleted")
	ErrConditionNotFound    = errors.New("condition not found")
	ErrActionNotFound       = errors.New("action not found")
	ErrDuplicateID          = errors.New("duplicate id")
	ErrInvalidConditionKind = errors.New("invalid condition kind")
	ErrInvalidActionKind    = errors.New("invalid action kind")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrInvalidRule          = errors.New("invalid rule")
)

// State is the authoring state of a rule.
type State string

const (
	Draft   State = "draft"
	Saved   State = "saved"
	Deleted State = "deleted"
)

func (s State) IsValid() bool {
	return s == Draft || s == Saved || s == Deleted
}

type Rule struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Entity     string      `json:"entity" yaml:"entity"`
	Enabled    bool        `json:"enabled" yaml:"enabled"`
	State      State       `json:"state" yaml:"state"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Actions    []Action    `json:"actions" yaml:"actions"`
	Version    int         `json:"version" yaml:"version"`
	UpdatedBy  string      `json:"updatedBy,omitempty" yaml:"updatedBy,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// New creates an enabled draft rule for an entity.
func New(name, entity string) Rule {
	return Rule{
		ID:         uuid.New().String(),
		Name:       name,
		Entity:     entity,
		Enabled:    true,
		State:      Draft,
		Conditions: []Condition{},
		Actions:    []Action{},
		Version:    SchemaVersion,
	}
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	conditions := make([]Condition, len(r.Conditions))
	for i, c := range r.Conditions {
		conditions[i] = cloneCondition(c)
	}
	actions := make([]Action, len(r.Actions))
	for i, a := range r.Actions {
		actions[i] = cloneAction(a)
	}
	r.Conditions = conditions
	r.Actions = actions
	return r
}

func (r Rule) Condition(id string) (Condition, bool) {
	for _, c := range r.Conditions {
		if c.ID == id {
			return cloneCondition(c), true
		}
	}
	return Condition{}, false
}

func (r Rule) Action(id string) (Action, bool) {
	for _, a := range r.Actions {
		if a.ID == id {
			return cloneAction(a), true
		}
	}
	return Action{}, false
}

// FilterRules returns the field conditions as filter rules, or false when the
// rule uses other condition kinds.
func (r Rule) FilterRules() ([]filter.Rule, bool) {
	result := make([]filter.Rule, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		rule, ok := c.FilterRule()
		if !ok {
			return nil, false
		}
		result = append(result, rule)
	}
	return result, true
}

// Describe renders the rule as "when <conditions> then <actions>".
func (r Rule) Describe(registry *filter.Registry) string {
	var sb strings.Builder
	sb.WriteString("when ")
	if len(r.Conditions) == 0 {
		sb.WriteString("always")
	}
	for i, c := range r.Conditions {
		if i > 0 {
			connector := filter.And
			if c.Connector == filter.Or {
				connector = filter.Or
			}
			sb.WriteString(" " + string(connector) + " ")
		}
		sb.WriteString(c.Describe(registry))
	}
	sb.WriteString(" then ")
	if len(r.Actions) == 0 {
		sb.WriteString("nothing")
	}
	for i, a := range r.Actions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Describe())
	}
	return sb.String()
}

// Validate checks every condition and action. Field level checks need a registry.
func (r Rule) Validate(registry *filter.Registry) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if strings.TrimSpace(r.Entity) == "" {
		return fmt.Errorf("%w: entity is required", ErrInvalidRule)
	}
	if !r.State.IsValid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidRule, r.State)
	}

	seen := make(map[string]bool, len(r.Conditions)+len(r.Actions))
	for i, c := range r.Conditions {
		if c.ID == "" || seen[c.ID] {
			return fmt.Errorf("condition %d: %w %q", i, ErrDuplicateID, c.ID)
		}
		seen[c.ID] = true
		if err := ValidateCondition(c, registry); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	for i, a := range r.Actions {
		if a.ID == "" || seen[a.ID] {
			return fmt.Errorf("action %d: %w %q", i, ErrDuplicateID, a.ID)
		}
		seen[a.ID] = true
		if err := ValidateAction(a, registry); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}
