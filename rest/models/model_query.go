package models

type Query struct {
	// Search is matched case-insensitively against the searchable fields.
	Search   string   `json:"search,omitempty"`
	Filters  []Filter `json:"filters,omitempty" validate:"dive"`
	OrderBy  []Order  `json:"orderBy,omitempty" validate:"dive"`
	PageSize int      `json:"pageSize,omitempty" validate:"gte=0"`
	Offset   int      `json:"offset,omitempty" validate:"gte=0"`
}

type Filter struct {
	Field     string      `json:"field" validate:"required"`
	Operator  string      `json:"operator" validate:"required,oneof=equals not_equals contains not_contains starts_with ends_with greater_than less_than is_empty is_not_empty is_true is_false matches_regex in_list"`
	Value     interface{} `json:"value,omitempty"`
	Connector string      `json:"connector,omitempty" validate:"omitempty,oneof=AND OR"`
}

type Order struct {
	Field     string `json:"field" validate:"required"`
	Direction string `json:"direction,omitempty" validate:"omitempty,oneof=ASC DESC asc desc"`
}
