package models

// RuleAdd creates a draft rule for an entity.
type RuleAdd struct {
	Name    string `json:"name" validate:"required"`
	Entity  string `json:"entity" validate:"required"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// ConditionAdd carries the payload of one condition. Which fields are used
// depends on the kind.
type ConditionAdd struct {
	Kind      string      `json:"kind" validate:"required,oneof=field search always"`
	Connector string      `json:"connector,omitempty" validate:"omitempty,oneof=AND OR"`
	Field     string      `json:"field,omitempty"`
	Operator  string      `json:"operator,omitempty" validate:"omitempty,oneof=equals not_equals contains not_contains starts_with ends_with greater_than less_than is_empty is_not_empty is_true is_false matches_regex in_list"`
	Value     interface{} `json:"value,omitempty"`
	Query     string      `json:"query,omitempty"`
	Fields    []string    `json:"fields,omitempty"`
}

// ActionAdd carries the payload of one action. Which fields are used depends
// on the kind.
type ActionAdd struct {
	Kind      string      `json:"kind" validate:"required,oneof=set_field add_tag assign_owner notify show_field hide_field require_field"`
	Field     string      `json:"field,omitempty"`
	Value     interface{} `json:"value,omitempty"`
	Tag       string      `json:"tag,omitempty"`
	Owner     string      `json:"owner,omitempty"`
	Channel   string      `json:"channel,omitempty"`
	Recipient string      `json:"recipient,omitempty"`
	Template  string      `json:"template,omitempty"`
}
