package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crmkit/crm-data-apis/types"
)

func companies() []types.Record {
	return []types.Record{
		{"id": "1", "name": "Acme", "status": "qualified", "score": 85},
		{"id": "2", "name": "Globex", "status": "new", "score": 40},
	}
}

func TestFilterRecords_Scenarios(t *testing.T) {
	records := companies()

	result := FilterRecords(records, "", []Rule{Where("status", Equals, "qualified")})
	assert.Equal(t, []types.Record{records[0]}, result)

	result = FilterRecords(records, "", []Rule{Where("score", GreaterThan, "50")})
	assert.Equal(t, []types.Record{records[0]}, result)
}

func TestFilterRecords_SearchAndRules(t *testing.T) {
	records := []types.Record{
		{"id": "1", "name": "Acme Builders", "city": "Austin", "score": 85},
		{"id": "2", "name": "Globex", "city": "Boston", "score": 40},
		{"id": "3", "name": "Initech", "city": "austin", "score": 70},
	}
	f := NewRecordFilter(nil, "name", "city")

	assert.Len(t, f.Filter(records, "", nil), 3)
	assert.Equal(t, []types.Record{records[0], records[2]}, f.Filter(records, "AUSTIN", nil))
	assert.Equal(t, []types.Record{records[0]}, f.Filter(records, "austin", []Rule{Where("score", GreaterThan, 80)}))
	assert.Empty(t, f.Filter(records, "zzz", nil))

	// score isn't searchable
	assert.Empty(t, f.Filter(records, "85", nil))
}

func TestFilterRecords_DoesNotMutateInput(t *testing.T) {
	records := companies()
	snapshot := types.CloneRecords(records)

	result := FilterRecords(records, "", []Rule{Where("status", Equals, "new")})
	assert.Len(t, result, 1)
	assert.Equal(t, snapshot, records)

	result = FilterRecords(records, "", nil)
	result[0] = types.Record{"id": "x"}
	assert.Equal(t, snapshot, records)
}

func TestFilterRecords_KeepsInputOrder(t *testing.T) {
	records := []types.Record{
		{"id": "3", "status": "new"},
		{"id": "1", "status": "new"},
		{"id": "2", "status": "lost"},
		{"id": "0", "status": "new"},
	}
	result := FilterRecords(records, "", []Rule{Where("status", Equals, "new")})
	ids := make([]string, len(result))
	for i, r := range result {
		ids[i] = r.ID()
	}
	assert.Equal(t, []string{"3", "1", "0"}, ids)
}

func TestFilterRecords_EqualsPartition(t *testing.T) {
	records := []types.Record{
		{"id": "1", "status": "new"},
		{"id": "2", "status": "qualified"},
		{"id": "3", "status": nil},
		{"id": "4", "status": "new"},
	}
	rule := Where("status", Equals, "new")
	negated, ok := rule.Negate()
	assert.True(t, ok)

	matched := FilterRecords(records, "", []Rule{rule})
	rest := FilterRecords(records, "", []Rule{negated})

	assert.Len(t, append(matched, rest...), len(records))
	seen := map[string]bool{}
	for _, r := range append(matched, rest...) {
		assert.False(t, seen[r.ID()], "record %s in both partitions", r.ID())
		seen[r.ID()] = true
	}
}

func TestForRegistry(t *testing.T) {
	registry := MustRegistry("leads",
		Field{Name: "name", Searchable: true},
		Field{Name: "email", Searchable: true},
		Field{Name: "score", Type: TypeNumber},
	)
	f := ForRegistry(registry)
	assert.Equal(t, []string{"name", "email"}, f.SearchFields())

	records := companies()
	assert.Len(t, f.Filter(records, "glob", nil), 1)
	// status isn't declared, so the rule never matches
	assert.Empty(t, f.Filter(records, "", []Rule{Where("status", Equals, "new")}))
}

func TestSort(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2021, 5, d, 0, 0, 0, 0, time.UTC) }
	records := []types.Record{
		{"id": "a", "name": "charlie", "score": 10, "due": day(3)},
		{"id": "b", "name": "Alpha", "score": 2.5, "due": day(1)},
		{"id": "c", "name": "bravo", "due": day(2)},
		{"id": "d", "name": "alpha", "score": 10},
	}

	ids := func(rs []types.Record) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID()
		}
		return out
	}

	assert.Equal(t, []string{"b", "d", "c", "a"}, ids(Sort(records, Order{Field: "name"})))
	assert.Equal(t, []string{"b", "a", "d", "c"}, ids(Sort(records, Order{Field: "score"})))
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids(Sort(records, Order{Field: "score", Direction: Desc})))
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(Sort(records, Order{Field: "due"})))
	assert.Equal(t, []string{"d", "a", "b", "c"},
		ids(Sort(records, Order{Field: "score", Direction: Desc}, Order{Field: "name"})))

	// Input order is preserved and left untouched.
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(Sort(records)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(records))
}
