package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrUnknownOperator  = errors.New("unknown operator")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownConnector = errors.New("unknown connector")
	ErrMissingField     = errors.New("field is required")
	ErrInvalidValue     = errors.New("invalid value")
	ErrUnsupported      = errors.New("operator not supported for field type")
)

// ValidationError reports the first invalid rule in a list.
type ValidationError struct {
	Index int
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("rule %d: %s", e.Index, e.Err)
	}
	return fmt.Sprintf("rule %d (%s): %s", e.Index, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks a rule list before it is stored or evaluated. The registry
// is optional; without one field names and operator compatibility are not checked.
func Validate(rules []Rule, registry *Registry) error {
	for i, rule := range rules {
		if err := ValidateRule(rule, registry); err != nil {
			return &ValidationError{Index: i, Field: rule.Field, Err: err}
		}
	}
	return nil
}

// ValidateRule checks a single rule.
func ValidateRule(rule Rule, registry *Registry) error {
	if strings.TrimSpace(rule.Field) == "" {
		return ErrMissingField
	}
	if !rule.Operator.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, rule.Operator)
	}
	if !rule.Connector.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownConnector, rule.Connector)
	}

	if registry != nil {
		field, ok := registry.Lookup(rule.Field)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, rule.Field)
		}
		if !field.Type.Supports(rule.Operator) {
			return fmt.Errorf("%w: %s on %s", ErrUnsupported, rule.Operator, field.Type)
		}
	}

	return validateValue(rule)
}

func validateValue(rule Rule) error {
	switch rule.Operator.ValueKind() {
	case ValueScalar:
		switch rule.Value.(type) {
		case nil:
			if rule.Operator == Equals || rule.Operator == NotEquals {
				return nil
			}
			return fmt.Errorf("%w: %s requires a value", ErrInvalidValue, rule.Operator)
		case []interface{}, []string, map[string]interface{}:
			return fmt.Errorf("%w: %s requires a single value", ErrInvalidValue, rule.Operator)
		}
	case ValueList:
		switch v := rule.Value.(type) {
		case []interface{}, []string:
		case string:
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%w: %s requires at least one item", ErrInvalidValue, rule.Operator)
			}
		default:
			return fmt.Errorf("%w: %s requires a list", ErrInvalidValue, rule.Operator)
		}
	case ValuePattern:
		pattern, ok := rule.Value.(string)
		if !ok {
			return fmt.Errorf("%w: %s requires a pattern", ErrInvalidValue, rule.Operator)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}
	return nil
}

// IsUnknownOperator reports whether err was caused by an operator outside the supported set.
func IsUnknownOperator(err error) bool {
	return errors.Is(err, ErrUnknownOperator)
}
