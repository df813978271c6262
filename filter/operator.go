package filter

import (
	"fmt"
)

// Operator is the comparison applied between a record attribute and a rule value.
type Operator string

const (
	Equals       Operator = "equals"
	NotEquals    Operator = "not_equals"
	Contains     Operator = "contains"
	NotContains  Operator = "not_contains"
	StartsWith   Operator = "starts_with"
	EndsWith     Operator = "ends_with"
	GreaterThan  Operator = "greater_than"
	LessThan     Operator = "less_than"
	IsEmpty      Operator = "is_empty"
	IsNotEmpty   Operator = "is_not_empty"
	IsTrue       Operator = "is_true"
	IsFalse      Operator = "is_false"
	MatchesRegex Operator = "matches_regex"
	InList       Operator = "in_list"
)

// ValueKind describes the operand an operator expects.
type ValueKind int

const (
	// ValueNone operators ignore the rule value.
	ValueNone ValueKind = iota
	ValueScalar
	ValueList
	ValuePattern
)

var operators = []Operator{
	Equals, NotEquals,
	Contains, NotContains,
	StartsWith, EndsWith,
	GreaterThan, LessThan,
	IsEmpty, IsNotEmpty,
	IsTrue, IsFalse,
	MatchesRegex,
	InList,
}

// Operators returns the closed set of supported operators.
func Operators() []Operator {
	result := make([]Operator, len(operators))
	copy(result, operators)
	return result
}

// IsValid reports whether the operator is part of the supported set.
func (o Operator) IsValid() bool {
	switch o {
	case Equals, NotEquals, Contains, NotContains, StartsWith, EndsWith,
		GreaterThan, LessThan, IsEmpty, IsNotEmpty, IsTrue, IsFalse, MatchesRegex, InList:
		return true
	}
	return false
}

func (o Operator) ValueKind() ValueKind {
	switch o {
	case IsEmpty, IsNotEmpty, IsTrue, IsFalse:
		return ValueNone
	case InList:
		return ValueList
	case MatchesRegex:
		return ValuePattern
	}
	return ValueScalar
}

// Negate returns the operator with the opposite outcome, when one exists.
func (o Operator) Negate() (Operator, bool) {
	switch o {
	case Equals:
		return NotEquals, true
	case NotEquals:
		return Equals, true
	case Contains:
		return NotContains, true
	case NotContains:
		return Contains, true
	case IsEmpty:
		return IsNotEmpty, true
	case IsNotEmpty:
		return IsEmpty, true
	}
	return "", false
}

// Label is the human readable form used when describing rules.
func (o Operator) Label() string {
	switch o {
	case Equals:
		return "equals"
	case NotEquals:
		return "does not equal"
	case Contains:
		return "contains"
	case NotContains:
		return "does not contain"
	case StartsWith:
		return "starts with"
	case EndsWith:
		return "ends with"
	case GreaterThan:
		return "is greater than"
	case LessThan:
		return "is less than"
	case IsEmpty:
		return "is empty"
	case IsNotEmpty:
		return "is not empty"
	case IsTrue:
		return "is true"
	case IsFalse:
		return "is false"
	case MatchesRegex:
		return "matches"
	case InList:
		return "is one of"
	}
	return string(o)
}

// ParseOperator converts a name into an Operator, failing for names outside the set.
func ParseOperator(name string) (Operator, error) {
	op := Operator(name)
	if !op.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}
	return op, nil
}

// Connector joins a rule with the accumulated result of the rules before it.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

func (c Connector) IsValid() bool {
	return c == "" || c == And || c == Or
}

// Combine folds the next result into the accumulated one. Anything other
// than OR combines with AND.
func Combine(acc bool, connector Connector, next bool) bool {
	if connector == Or {
		return acc || next
	}
	return acc && next
}
