package filter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crmkit/crm-data-apis/types"
)

func acme() types.Record {
	return types.Record{
		"id":        "1",
		"name":      "Acme",
		"status":    "qualified",
		"score":     85,
		"email":     "sales@acme.io",
		"tags":      []interface{}{"vip", "construction"},
		"contacted": true,
		"notes":     "",
		"created":   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func globex() types.Record {
	return types.Record{
		"id":        "2",
		"name":      "Globex",
		"status":    "new",
		"score":     40,
		"email":     "info@globex.com",
		"tags":      []interface{}{},
		"contacted": false,
		"notes":     "call back Monday",
	}
}

func TestEvaluate_EmptyRulesMatchEverything(t *testing.T) {
	for _, record := range []types.Record{acme(), globex(), {}, nil} {
		assert.True(t, Evaluate(record, nil))
		assert.True(t, Evaluate(record, []Rule{}))
	}
}

func TestEvaluate_Operators(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		record types.Record
		want   bool
	}{
		{"equals", Where("status", Equals, "qualified"), acme(), true},
		{"equals other", Where("status", Equals, "new"), acme(), false},
		{"equals is strict on types", Where("score", Equals, "85"), acme(), false},
		{"equals numbers across kinds", Where("score", Equals, 85.0), acme(), true},
		{"not_equals", Where("status", NotEquals, "new"), acme(), true},
		{"contains ignores case", Where("name", Contains, "ACM"), acme(), true},
		{"contains coerces numbers", Where("score", Contains, 8), acme(), true},
		{"contains on list", Where("tags", Contains, "VIP"), acme(), true},
		{"not_contains", Where("email", NotContains, "acme"), globex(), true},
		{"starts_with", Where("email", StartsWith, "Sales@"), acme(), true},
		{"starts_with miss", Where("email", StartsWith, "acme"), acme(), false},
		{"ends_with", Where("email", EndsWith, ".COM"), globex(), true},
		{"greater_than string operand", Where("score", GreaterThan, "50"), acme(), true},
		{"greater_than excluded", Where("score", GreaterThan, "50"), globex(), false},
		{"greater_than equal value", Where("score", GreaterThan, 85), acme(), false},
		{"less_than", Where("score", LessThan, 50), globex(), true},
		{"greater_than NaN field", Where("name", GreaterThan, 1), acme(), false},
		{"less_than NaN operand", Where("score", LessThan, "lots"), acme(), false},
		{"is_empty empty string", Where("notes", IsEmpty, nil), acme(), true},
		{"is_empty empty list", Where("tags", IsEmpty, nil), globex(), true},
		{"is_not_empty", Where("tags", IsNotEmpty, nil), acme(), true},
		{"is_true", Where("contacted", IsTrue, nil), acme(), true},
		{"is_true on truthy string", Where("status", IsTrue, nil), acme(), false},
		{"is_false", Where("contacted", IsFalse, nil), globex(), true},
		{"is_false on empty string", Where("notes", IsFalse, nil), acme(), false},
		{"matches_regex", Where("email", MatchesRegex, `^[a-z]+@acme\.io$`), acme(), true},
		{"matches_regex is case sensitive", Where("name", MatchesRegex, `^acme`), acme(), false},
		{"matches_regex invalid pattern", Where("name", MatchesRegex, `(`), acme(), false},
		{"in_list", Where("status", InList, []interface{}{"new", "qualified"}), acme(), true},
		{"in_list miss", Where("status", InList, []interface{}{"new", "lost"}), acme(), false},
		{"in_list strict", Where("score", InList, []interface{}{"85"}), acme(), false},
		{"in_list numbers", Where("score", InList, []interface{}{40, 85}), acme(), true},
		{"in_list string slice", Where("status", InList, []string{"new"}), globex(), true},
		{"in_list comma separated", Where("status", InList, "new, qualified"), acme(), true},
		{"in_list comma separated numbers", Where("score", InList, "40,85"), globex(), true},
		{"greater_than date string", Where("created", GreaterThan, "2024-01-01"), acme(), true},
		{"less_than date string", Where("created", LessThan, "2024-01-01"), acme(), false},
		{"less_than date", Where("created", LessThan, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), acme(), true},
		{"unknown field", Where("revenue", GreaterThan, 1), acme(), false},
		{"unknown field is_empty", Where("revenue", IsEmpty, nil), acme(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.record, []Rule{tt.rule}))
		})
	}
}

func TestEvaluate_SingleEqualsRule(t *testing.T) {
	rules := []Rule{Where("status", Equals, "new")}
	for _, record := range []types.Record{acme(), globex(), {"status": "New"}, {"status": nil}, {}} {
		assert.Equal(t, record["status"] == "new", Evaluate(record, rules), "%v", record)
	}
}

func TestEvaluate_ContainsInverse(t *testing.T) {
	for _, record := range []types.Record{acme(), globex()} {
		for _, field := range []string{"name", "email", "notes", "score", "tags"} {
			for _, value := range []interface{}{"a", "ACME", "4", "zzz", ""} {
				c := Evaluate(record, []Rule{Where(field, Contains, value)})
				n := Evaluate(record, []Rule{Where(field, NotContains, value)})
				assert.NotEqual(t, c, n, "field %s value %v", field, value)
			}
		}
	}
}

func TestEvaluate_Connectors(t *testing.T) {
	truthy := Where("status", Equals, "qualified")
	falsy := Where("status", Equals, "lost")

	tests := []struct {
		name  string
		first Rule
		next  Rule
		and   bool
		or    bool
	}{
		{"true/true", truthy, truthy, true, true},
		{"true/false", truthy, falsy, false, true},
		{"false/true", falsy, truthy, false, true},
		{"false/false", falsy, falsy, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			and := tt.next
			and.Connector = And
			or := tt.next
			or.Connector = Or
			assert.Equal(t, tt.and, Evaluate(acme(), []Rule{tt.first, and}))
			assert.Equal(t, tt.or, Evaluate(acme(), []Rule{tt.first, or}))
		})
	}
}

func TestEvaluate_FoldsLeftToRight(t *testing.T) {
	// (false OR true) AND false
	rules := []Rule{
		Where("status", Equals, "lost"),
		OrWhere("status", Equals, "qualified"),
		Where("score", LessThan, 10),
	}
	assert.False(t, Evaluate(acme(), rules))

	// (true OR false) AND false
	rules = []Rule{
		Where("status", Equals, "qualified"),
		OrWhere("score", LessThan, 10),
		Where("score", LessThan, 10),
	}
	assert.False(t, Evaluate(acme(), rules))

	// (false AND true) OR true
	rules = []Rule{
		Where("status", Equals, "lost"),
		Where("score", GreaterThan, 10),
		OrWhere("name", Equals, "Acme"),
	}
	assert.True(t, Evaluate(acme(), rules))
}

func TestEvaluate_FirstConnectorIgnored(t *testing.T) {
	rule := OrWhere("status", Equals, "lost")
	assert.False(t, Evaluate(acme(), []Rule{rule}))
}

func TestEvaluate_EmptinessPartition(t *testing.T) {
	registry := MustRegistry("leads", Field{Name: "value", Type: TypeText})
	evaluator := NewEvaluator(WithRegistry(registry))

	values := []interface{}{nil, "", []interface{}{}, 0, "x", 12, []interface{}{"a"}}
	for _, value := range values {
		record := types.Record{"value": value}
		empty := evaluator.Evaluate(record, []Rule{Where("value", IsEmpty, nil)})
		notEmpty := evaluator.Evaluate(record, []Rule{Where("value", IsNotEmpty, nil)})
		assert.NotEqual(t, empty, notEmpty, "%#v", value)
	}

	// A declared field that the record doesn't carry is undefined, which is empty.
	assert.True(t, evaluator.Evaluate(types.Record{}, []Rule{Where("value", IsEmpty, nil)}))
	assert.True(t, evaluator.Evaluate(types.Record{"value": 0}, []Rule{Where("value", IsEmpty, nil)}))
}

func TestEvaluate_RegistryRejectsUndeclaredFields(t *testing.T) {
	registry := MustRegistry("leads", Field{Name: "status"})
	evaluator := NewEvaluator(WithRegistry(registry))

	record := acme()
	assert.True(t, evaluator.Evaluate(record, []Rule{Where("status", Equals, "qualified")}))
	assert.False(t, evaluator.Evaluate(record, []Rule{Where("name", Equals, "Acme")}))
}

func TestEvaluate_DateOperands(t *testing.T) {
	registry := MustRegistry("leads", Field{Name: "created", Type: TypeDate})
	evaluator := NewEvaluator(WithRegistry(registry))

	tests := []struct {
		name  string
		rule  Rule
		match bool
	}{
		{"equals date", Where("created", Equals, "2024-01-15"), true},
		{"equals timestamp", Where("created", Equals, "2024-01-15T00:00:00Z"), true},
		{"equals other date", Where("created", Equals, "2024-01-16"), false},
		{"equals unparsable", Where("created", Equals, "soon"), false},
		{"not_equals date", Where("created", NotEquals, "2024-01-15"), false},
		{"not_equals other date", Where("created", NotEquals, "2024-02-01"), true},
		{"in_list slice", Where("created", InList, []interface{}{"2023-12-31", "2024-01-15"}), true},
		{"in_list text", Where("created", InList, "2023-12-31, 2024-01-15"), true},
		{"in_list misses", Where("created", InList, []string{"2023-12-31"}), false},
		{"greater_than", Where("created", GreaterThan, "2024-01-14"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, evaluator.Match(acme(), tt.rule))
		})
	}
}

func TestEvaluate_PatternCacheIsBounded(t *testing.T) {
	evaluator := NewEvaluator()
	for i := 0; i < patternCacheSize*4; i++ {
		evaluator.Match(acme(), Where("email", MatchesRegex, fmt.Sprintf("^%d", i)))
	}
	assert.Equal(t, patternCacheSize, evaluator.patterns.Len())

	assert.True(t, evaluator.Match(acme(), Where("email", MatchesRegex, `acme\.io$`)))
	assert.True(t, evaluator.Match(acme(), Where("email", MatchesRegex, `acme\.io$`)))
}

func TestEvaluate_UnknownOperator(t *testing.T) {
	bogus := Rule{Field: "score", Operator: "bogus_op", Value: 1}

	assert.False(t, Evaluate(acme(), []Rule{bogus}))
	assert.False(t, NewEvaluator(WithUnknownOperatorPolicy(NoMatch)).Evaluate(acme(), []Rule{bogus}))
	assert.True(t, NewEvaluator(WithUnknownOperatorPolicy(MatchAll)).Evaluate(acme(), []Rule{bogus}))

	// An unknown field still wins over the policy.
	assert.False(t, NewEvaluator(WithUnknownOperatorPolicy(MatchAll)).
		Evaluate(acme(), []Rule{{Field: "nope", Operator: "bogus_op"}}))

	err := Validate([]Rule{bogus}, nil)
	assert.Error(t, err)
	assert.True(t, IsUnknownOperator(err))
}

func TestParseUnknownOperatorPolicy(t *testing.T) {
	policy, ok := ParseUnknownOperatorPolicy("match-all")
	assert.True(t, ok)
	assert.Equal(t, MatchAll, policy)

	policy, ok = ParseUnknownOperatorPolicy("")
	assert.True(t, ok)
	assert.Equal(t, NoMatch, policy)

	_, ok = ParseUnknownOperatorPolicy("sometimes")
	assert.False(t, ok)
}
