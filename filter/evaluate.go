package filter

import (
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crmkit/crm-data-apis/types"
)

// patternCacheSize bounds the compiled matches_regex patterns kept per evaluator.
const patternCacheSize = 256

// UnknownOperatorPolicy decides how a rule with an unsupported operator evaluates.
// Validated rules never reach this path.
type UnknownOperatorPolicy int

const (
	// NoMatch treats the rule as false.
	NoMatch UnknownOperatorPolicy = iota
	// MatchAll treats the rule as true.
	MatchAll
)

func (p UnknownOperatorPolicy) String() string {
	if p == MatchAll {
		return "match-all"
	}
	return "no-match"
}

// ParseUnknownOperatorPolicy reads the configuration form of a policy.
func ParseUnknownOperatorPolicy(name string) (UnknownOperatorPolicy, bool) {
	switch strings.ToLower(name) {
	case "", "no-match", "nomatch", "reject":
		return NoMatch, true
	case "match-all", "matchall":
		return MatchAll, true
	}
	return NoMatch, false
}

type Option func(e *Evaluator)

// WithRegistry restricts rules to the fields declared in the registry.
func WithRegistry(registry *Registry) Option {
	return func(e *Evaluator) {
		e.registry = registry
	}
}

func WithUnknownOperatorPolicy(policy UnknownOperatorPolicy) Option {
	return func(e *Evaluator) {
		e.unknown = policy
	}
}

// Evaluator applies rule lists to records. It is safe for concurrent use.
type Evaluator struct {
	registry *Registry
	unknown  UnknownOperatorPolicy
	patterns *lru.Cache[string, *regexp.Regexp]
}

func NewEvaluator(opts ...Option) *Evaluator {
	// New only fails on a non positive size
	patterns, _ := lru.New[string, *regexp.Regexp](patternCacheSize)
	e := &Evaluator{unknown: NoMatch, patterns: patterns}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEvaluator = NewEvaluator()

// Evaluate applies the rules to the record with the default evaluator.
func Evaluate(record types.Record, rules []Rule) bool {
	return defaultEvaluator.Evaluate(record, rules)
}

func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// Evaluate folds the rules left to right and reports whether the record matches.
func (e *Evaluator) Evaluate(record types.Record, rules []Rule) bool {
	if len(rules) == 0 {
		return true
	}

	acc := e.Match(record, rules[0])
	for _, rule := range rules[1:] {
		acc = Combine(acc, rule.Connector, e.Match(record, rule))
	}
	return acc
}

// Match applies a single rule, ignoring its connector.
func (e *Evaluator) Match(record types.Record, rule Rule) bool {
	value, declared := e.lookup(record, rule.Field)
	if !declared {
		return false
	}
	if !rule.Operator.IsValid() {
		return e.unknown == MatchAll
	}
	return e.apply(value, rule.Operator, rule.Value)
}

func (e *Evaluator) lookup(record types.Record, field string) (interface{}, bool) {
	if e.registry != nil {
		if !e.registry.Has(field) {
			return nil, false
		}
		return record[field], true
	}
	value, ok := record[field]
	return value, ok
}

func (e *Evaluator) apply(value interface{}, op Operator, operand interface{}) bool {
	switch op {
	case Equals:
		return equalValues(value, operand)
	case NotEquals:
		return !equalValues(value, operand)
	case Contains:
		return containsFold(value, operand)
	case NotContains:
		return !containsFold(value, operand)
	case StartsWith:
		return strings.HasPrefix(lower(value), lower(operand))
	case EndsWith:
		return strings.HasSuffix(lower(value), lower(operand))
	case GreaterThan:
		c, ok := compareOrdered(value, operand)
		return ok && c > 0
	case LessThan:
		c, ok := compareOrdered(value, operand)
		return ok && c < 0
	case IsEmpty:
		return types.IsEmpty(value)
	case IsNotEmpty:
		return !types.IsEmpty(value)
	case IsTrue:
		b, ok := value.(bool)
		return ok && b
	case IsFalse:
		b, ok := value.(bool)
		return ok && !b
	case MatchesRegex:
		re := e.pattern(operand)
		return re != nil && re.MatchString(types.ToString(value))
	case InList:
		return inList(value, operand)
	}
	return false
}

func (e *Evaluator) pattern(operand interface{}) *regexp.Regexp {
	source, ok := operand.(string)
	if !ok {
		return nil
	}
	if cached, ok := e.patterns.Get(source); ok {
		return cached
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return nil
	}
	e.patterns.Add(source, re)
	return re
}

// equalValues compares dates by instant when the record value is a date and
// the operand reads as one, and strictly otherwise.
func equalValues(value, operand interface{}) bool {
	if t, ok := value.(time.Time); ok {
		if other, ok := types.ToTime(operand); ok {
			return t.Equal(other)
		}
	}
	return types.StrictEquals(value, operand)
}

// compareOrdered compares dates when the record value is a date and the
// operand reads as one, and numbers otherwise.
func compareOrdered(value, operand interface{}) (int, bool) {
	if t, ok := value.(time.Time); ok {
		if other, ok := types.ToTime(operand); ok {
			switch {
			case t.Before(other):
				return -1, true
			case t.After(other):
				return 1, true
			}
			return 0, true
		}
	}
	return types.CompareNumbers(value, operand)
}

func lower(value interface{}) string {
	return strings.ToLower(types.ToString(value))
}

func containsFold(value, operand interface{}) bool {
	return strings.Contains(lower(value), lower(operand))
}

func inList(value, operand interface{}) bool {
	switch list := operand.(type) {
	case []interface{}:
		for _, item := range list {
			if equalValues(value, item) {
				return true
			}
		}
	case []string:
		for _, item := range list {
			if equalValues(value, item) {
				return true
			}
		}
	case string:
		_, isDate := value.(time.Time)
		s := types.ToString(value)
		for _, item := range strings.Split(list, ",") {
			item = strings.TrimSpace(item)
			if item == s || (isDate && equalValues(value, item)) {
				return true
			}
		}
	}
	return false
}
