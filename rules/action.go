package rules

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

// ActionKind tags the payload carried by an Action.
type ActionKind string

const (
	SetField     ActionKind = "set_field"
	AddTag       ActionKind = "add_tag"
	AssignOwner  ActionKind = "assign_owner"
	Notify       ActionKind = "notify"
	ShowField    ActionKind = "show_field"
	HideField    ActionKind = "hide_field"
	RequireField ActionKind = "require_field"
)

// Default target fields for tag and owner actions.
const (
	DefaultTagField   = "tags"
	DefaultOwnerField = "owner"
)

func (k ActionKind) IsValid() bool {
	switch k {
	case SetField, AddTag, AssignOwner, Notify, ShowField, HideField, RequireField:
		return true
	}
	return false
}

// Channels accepted by notify actions.
var Channels = []string{"email", "sms", "whatsapp", "call"}

type SetFieldAction struct {
	Field string      `json:"field" yaml:"field"`
	Value interface{} `json:"value" yaml:"value"`
}

type TagAction struct {
	Tag   string `json:"tag" yaml:"tag"`
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

type AssignAction struct {
	Owner string `json:"owner" yaml:"owner"`
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

type NotifyAction struct {
	Channel   string `json:"channel" yaml:"channel"`
	Recipient string `json:"recipient,omitempty" yaml:"recipient,omitempty"`
	// Template may reference record attributes as {{field}}.
	Template string `json:"template" yaml:"template"`
}

// FieldAction targets a form field for show, hide and require actions.
type FieldAction struct {
	Field string `json:"field" yaml:"field"`
}

// Action is one effect of a matching rule. Exactly one payload is set, the
// one matching Kind.
type Action struct {
	ID     string          `json:"id" yaml:"id"`
	Kind   ActionKind      `json:"kind" yaml:"kind"`
	Set    *SetFieldAction `json:"set,omitempty" yaml:"set,omitempty"`
	Tag    *TagAction      `json:"tag,omitempty" yaml:"tag,omitempty"`
	Assign *AssignAction   `json:"assign,omitempty" yaml:"assign,omitempty"`
	Notify *NotifyAction   `json:"notify,omitempty" yaml:"notify,omitempty"`
	Target *FieldAction    `json:"target,omitempty" yaml:"target,omitempty"`
}

func SetFieldTo(field string, value interface{}) Action {
	return Action{ID: uuid.New().String(), Kind: SetField, Set: &SetFieldAction{Field: field, Value: value}}
}

func AddTagged(tag string) Action {
	return Action{ID: uuid.New().String(), Kind: AddTag, Tag: &TagAction{Tag: tag}}
}

func AssignTo(owner string) Action {
	return Action{ID: uuid.New().String(), Kind: AssignOwner, Assign: &AssignAction{Owner: owner}}
}

func NotifyBy(channel, recipient, template string) Action {
	return Action{
		ID:     uuid.New().String(),
		Kind:   Notify,
		Notify: &NotifyAction{Channel: channel, Recipient: recipient, Template: template},
	}
}

// TargetField builds a show, hide or require action.
func TargetField(kind ActionKind, field string) Action {
	return Action{ID: uuid.New().String(), Kind: kind, Target: &FieldAction{Field: field}}
}

func (a Action) payloads() int {
	n := 0
	if a.Set != nil {
		n++
	}
	if a.Tag != nil {
		n++
	}
	if a.Assign != nil {
		n++
	}
	if a.Notify != nil {
		n++
	}
	if a.Target != nil {
		n++
	}
	return n
}

// Describe renders the action as text.
func (a Action) Describe() string {
	switch {
	case a.Kind == SetField && a.Set != nil:
		return fmt.Sprintf("set %s to %s", a.Set.Field, types.ToString(a.Set.Value))
	case a.Kind == AddTag && a.Tag != nil:
		return fmt.Sprintf("tag %q", a.Tag.Tag)
	case a.Kind == AssignOwner && a.Assign != nil:
		return fmt.Sprintf("assign to %s", a.Assign.Owner)
	case a.Kind == Notify && a.Notify != nil:
		return fmt.Sprintf("notify by %s", a.Notify.Channel)
	case a.Target != nil:
		return fmt.Sprintf("%s %s", strings.TrimSuffix(string(a.Kind), "_field"), a.Target.Field)
	}
	return string(a.Kind)
}

// ValidateAction checks the action payload, and target fields when a
// registry is given.
func ValidateAction(a Action, registry *filter.Registry) error {
	if !a.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidActionKind, a.Kind)
	}
	if a.payloads() != 1 {
		return fmt.Errorf("%w: %s action requires exactly one payload", ErrInvalidPayload, a.Kind)
	}

	switch a.Kind {
	case SetField:
		if a.Set == nil || a.Set.Field == "" {
			return fmt.Errorf("%w: set_field requires a field", ErrInvalidPayload)
		}
		if a.Set.Field == types.IDField {
			return fmt.Errorf("%w: the record id can't be changed", ErrInvalidPayload)
		}
		if registry != nil {
			field, ok := registry.Lookup(a.Set.Field)
			if !ok {
				return fmt.Errorf("%w: %s", filter.ErrUnknownField, a.Set.Field)
			}
			if err := checkValueType(field, a.Set.Value); err != nil {
				return err
			}
		}
	case AddTag:
		if a.Tag == nil || strings.TrimSpace(a.Tag.Tag) == "" {
			return fmt.Errorf("%w: add_tag requires a tag", ErrInvalidPayload)
		}
		if registry != nil {
			field, ok := registry.Lookup(tagField(a.Tag))
			if !ok {
				return fmt.Errorf("%w: %s", filter.ErrUnknownField, tagField(a.Tag))
			}
			if field.Type != filter.TypeList {
				return fmt.Errorf("%w: tags go into a list field, %s is %s", ErrInvalidPayload, field.Name, field.Type)
			}
		}
	case AssignOwner:
		if a.Assign == nil || strings.TrimSpace(a.Assign.Owner) == "" {
			return fmt.Errorf("%w: assign_owner requires an owner", ErrInvalidPayload)
		}
		if registry != nil && !registry.Has(ownerField(a.Assign)) {
			return fmt.Errorf("%w: %s", filter.ErrUnknownField, ownerField(a.Assign))
		}
	case Notify:
		if a.Notify == nil || strings.TrimSpace(a.Notify.Template) == "" {
			return fmt.Errorf("%w: notify requires a template", ErrInvalidPayload)
		}
		if !validChannel(a.Notify.Channel) {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidPayload, a.Notify.Channel)
		}
	case ShowField, HideField, RequireField:
		if a.Target == nil || a.Target.Field == "" {
			return fmt.Errorf("%w: %s requires a field", ErrInvalidPayload, a.Kind)
		}
		if registry != nil && !registry.Has(a.Target.Field) {
			return fmt.Errorf("%w: %s", filter.ErrUnknownField, a.Target.Field)
		}
	}
	return nil
}

func checkValueType(field filter.Field, value interface{}) error {
	if value == nil {
		return nil
	}
	ok := true
	switch field.Type {
	case filter.TypeNumber:
		ok = types.IsNumeric(value)
	case filter.TypeBoolean:
		_, ok = value.(bool)
	case filter.TypeDate:
		_, ok = types.ToTime(value)
	case filter.TypeList:
		switch value.(type) {
		case []interface{}, []string:
		default:
			ok = false
		}
	}
	if !ok {
		return fmt.Errorf("%w: %v is not a valid %s value for %s", ErrInvalidPayload, value, field.Type, field.Name)
	}
	return nil
}

func validChannel(channel string) bool {
	for _, c := range Channels {
		if c == channel {
			return true
		}
	}
	return false
}

func tagField(t *TagAction) string {
	if t.Field == "" {
		return DefaultTagField
	}
	return t.Field
}

func ownerField(a *AssignAction) string {
	if a.Field == "" {
		return DefaultOwnerField
	}
	return a.Field
}

func cloneAction(a Action) Action {
	if a.Set != nil {
		set := *a.Set
		set.Value = cloneValue(set.Value)
		a.Set = &set
	}
	if a.Tag != nil {
		tag := *a.Tag
		a.Tag = &tag
	}
	if a.Assign != nil {
		assign := *a.Assign
		a.Assign = &assign
	}
	if a.Notify != nil {
		notify := *a.Notify
		a.Notify = &notify
	}
	if a.Target != nil {
		target := *a.Target
		a.Target = &target
	}
	return a
}
