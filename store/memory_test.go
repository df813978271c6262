package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

func leadsRegistry() *filter.Registry {
	return filter.MustRegistry("leads",
		filter.Field{Name: "id"},
		filter.Field{Name: "name", Searchable: true},
		filter.Field{Name: "status"},
		filter.Field{Name: "score", Type: filter.TypeNumber},
		filter.Field{Name: "email", Searchable: true},
		filter.Field{Name: "tags", Type: filter.TypeList},
		filter.Field{Name: "contacted", Type: filter.TypeBoolean},
		filter.Field{Name: "next_call", Type: filter.TypeDate},
	)
}

func leadRecords() []types.Record {
	return []types.Record{
		{"id": "1", "name": "Acme", "status": "qualified", "score": 85, "email": "sales@acme.io",
			"tags": []interface{}{"vip"}, "contacted": true, "next_call": "2024-05-01"},
		{"id": "2", "name": "Globex", "status": "new", "score": 40, "email": "info@globex.com",
			"tags": []interface{}{}, "contacted": false},
		{"id": "3", "name": "Initech", "status": "new", "score": 62, "email": "bill@initech.com",
			"tags": []string{"software"}, "contacted": false},
	}
}

func newLeads(t *testing.T) *MemoryRepository {
	repo := NewMemoryRepository(leadsRegistry())
	require.NoError(t, repo.Load(context.Background(), leadRecords()))
	return repo
}

func ids(records []types.Record) []string {
	result := make([]string, len(records))
	for i, r := range records {
		result[i] = r.ID()
	}
	return result
}

// repositoryContract runs the behavior every repository shares.
func repositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		tests := []struct {
			name  string
			query Query
			ids   []string
			count int
		}{
			{"everything", Query{}, []string{"1", "2", "3"}, 3},
			{"search", Query{Search: "GLOBEX"}, []string{"2"}, 1},
			{"search is limited to searchable fields", Query{Search: "qualified"}, []string{}, 0},
			{"rules", Query{Rules: []filter.Rule{filter.Where("status", filter.Equals, "new")}}, []string{"2", "3"}, 2},
			{"search and rules", Query{
				Search: ".com",
				Rules:  []filter.Rule{filter.Where("score", filter.GreaterThan, 50)},
			}, []string{"3"}, 1},
			{"order", Query{OrderBy: []filter.Order{{Field: "score", Direction: filter.Desc}}}, []string{"1", "3", "2"}, 3},
			{"page", Query{OrderBy: []filter.Order{{Field: "name"}}, Limit: 1, Offset: 1}, []string{"2"}, 3},
			{"offset past the end", Query{Offset: 10}, []string{}, 3},
			{"limit larger than the remaining records", Query{
				OrderBy: []filter.Order{{Field: "name"}}, Limit: math.MaxInt64, Offset: 1,
			}, []string{"2", "3"}, 3},
			{"undeclared field never matches", Query{
				Rules: []filter.Rule{filter.Where("revenue", filter.IsEmpty, nil)},
			}, []string{}, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result, err := repo.List(ctx, tt.query)
				require.NoError(t, err)
				assert.Equal(t, tt.ids, ids(result.Values))
				assert.Equal(t, tt.count, result.Count)
			})
		}
	})

	t.Run("get", func(t *testing.T) {
		record, err := repo.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "Acme", record["name"])
		assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), record["next_call"])

		_, err = repo.Get(ctx, "404")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("update", func(t *testing.T) {
		updated, err := repo.Update(ctx, "2", types.Record{
			"id":        "2",
			"status":    "qualified",
			"score":     "75",
			"tags":      []string{"hot"},
			"next_call": "2024-06-01T10:00:00Z",
		})
		require.NoError(t, err)
		assert.Equal(t, "qualified", updated["status"])
		assert.Equal(t, 75.0, updated["score"])
		assert.Equal(t, []interface{}{"hot"}, updated["tags"])
		assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), updated["next_call"])
		assert.Equal(t, "Globex", updated["name"])

		got, err := repo.Get(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, "qualified", got["status"])
	})

	t.Run("update errors", func(t *testing.T) {
		tests := []struct {
			name  string
			id    string
			patch types.Record
			err   error
		}{
			{"missing record", "404", types.Record{"status": "new"}, ErrRecordNotFound},
			{"undeclared field", "1", types.Record{"revenue": 10}, ErrUnknownField},
			{"id change", "1", types.Record{"id": "9"}, ErrReadOnlyField},
			{"not a number", "1", types.Record{"score": "high"}, ErrInvalidValue},
			{"not a boolean", "1", types.Record{"contacted": "yes"}, ErrInvalidValue},
			{"not a date", "1", types.Record{"next_call": "soon"}, ErrInvalidValue},
			{"not a list", "1", types.Record{"tags": "vip"}, ErrInvalidValue},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := repo.Update(ctx, tt.id, tt.patch)
				assert.ErrorIs(t, err, tt.err)
			})
		}
	})
}

func TestMemoryRepository(t *testing.T) {
	repositoryContract(t, newLeads(t))
}

func TestMemoryRepository_CopiesRecords(t *testing.T) {
	repo := newLeads(t)
	ctx := context.Background()

	record, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	record["name"] = "changed"
	record["tags"].([]interface{})[0] = "changed"

	result, err := repo.List(ctx, Query{})
	require.NoError(t, err)
	result.Values[0]["status"] = "changed"

	again, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", again["name"])
	assert.Equal(t, "qualified", again["status"])
	assert.Equal(t, []interface{}{"vip"}, again["tags"])
}

func TestMemoryRepository_Load(t *testing.T) {
	repo := newLeads(t)
	ctx := context.Background()

	require.NoError(t, repo.Load(ctx, []types.Record{{"id": "1", "name": "Duplicate"}, {"id": 4, "name": "Umbrella"}}))
	result, err := repo.List(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(result.Values))
	assert.Equal(t, "Acme", result.Values[0]["name"])

	assert.Error(t, repo.Load(ctx, []types.Record{{"name": "No id"}}))
}

func TestMemoryRepository_ContextDone(t *testing.T) {
	repo := newLeads(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx, Query{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.Get(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}
