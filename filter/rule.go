// Package filter evaluates declarative rules against flat records.
//
// A rule compares one record attribute with an operand using one of a closed
// set of operators. Rules are combined left to right, each joining the result
// of the rules before it with its own connector. The first rule's connector is
// ignored and an empty rule list matches every record.
package filter

// Rule is a single declarative predicate over a record attribute.
type Rule struct {
	Field     string      `json:"field" yaml:"field" mapstructure:"field"`
	Operator  Operator    `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value     interface{} `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Connector Connector   `json:"connector,omitempty" yaml:"connector,omitempty" mapstructure:"connector"`
}

// Where starts a rule joined with AND.
func Where(field string, op Operator, value interface{}) Rule {
	return Rule{Field: field, Operator: op, Value: value, Connector: And}
}

// OrWhere builds a rule joined with OR.
func OrWhere(field string, op Operator, value interface{}) Rule {
	return Rule{Field: field, Operator: op, Value: value, Connector: Or}
}

// Negate returns the rule with its operator inverted, when the operator has an inverse.
func (r Rule) Negate() (Rule, bool) {
	op, ok := r.Operator.Negate()
	if !ok {
		return r, false
	}
	r.Operator = op
	return r, true
}
