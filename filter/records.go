package filter

import (
	"strings"

	"github.com/crmkit/crm-data-apis/types"
)

// RecordFilter combines a free-text search over a fixed set of fields with a
// rule list.
type RecordFilter struct {
	evaluator    *Evaluator
	searchFields []string
}

// NewRecordFilter creates a filter. A nil evaluator uses the defaults.
func NewRecordFilter(evaluator *Evaluator, searchFields ...string) *RecordFilter {
	if evaluator == nil {
		evaluator = defaultEvaluator
	}
	return &RecordFilter{
		evaluator:    evaluator,
		searchFields: append([]string(nil), searchFields...),
	}
}

// ForRegistry creates a filter that searches the registry's searchable fields
// and only accepts rules on declared fields.
func ForRegistry(registry *Registry, opts ...Option) *RecordFilter {
	opts = append([]Option{WithRegistry(registry)}, opts...)
	return NewRecordFilter(NewEvaluator(opts...), registry.SearchFields()...)
}

// FilterRecords applies a query and rules with the default evaluator.
func FilterRecords(records []types.Record, query string, rules []Rule, searchFields ...string) []types.Record {
	return NewRecordFilter(nil, searchFields...).Filter(records, query, rules)
}

func (f *RecordFilter) Evaluator() *Evaluator {
	return f.evaluator
}

func (f *RecordFilter) SearchFields() []string {
	return append([]string(nil), f.searchFields...)
}

// Filter returns the records matching both the query and the rules, in input
// order. The input slice is left untouched.
func (f *RecordFilter) Filter(records []types.Record, query string, rules []Rule) []types.Record {
	result := make([]types.Record, 0, len(records))
	for _, record := range records {
		if f.Matches(record, query, rules) {
			result = append(result, record)
		}
	}
	return result
}

func (f *RecordFilter) Matches(record types.Record, query string, rules []Rule) bool {
	return f.MatchesQuery(record, query) && f.evaluator.Evaluate(record, rules)
}

// MatchesQuery reports whether any searchable field contains the query,
// ignoring case. An empty query matches every record.
func (f *RecordFilter) MatchesQuery(record types.Record, query string) bool {
	return MatchesQuery(record, query, f.searchFields)
}

func MatchesQuery(record types.Record, query string, fields []string) bool {
	if query == "" {
		return true
	}
	needle := strings.ToLower(query)
	for _, field := range fields {
		value, ok := record[field]
		if !ok || value == nil {
			continue
		}
		if strings.Contains(strings.ToLower(types.ToString(value)), needle) {
			return true
		}
	}
	return false
}
