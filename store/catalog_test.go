package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedDocument = `
entities:
  - name: leads
    fields:
      - {name: name, searchable: true}
      - {name: status}
      - {name: score, type: number}
      - {name: next_call, type: date, label: Next call}
    records:
      - {id: 1, name: Acme, status: qualified, score: 85, next_call: 2024-05-01}
      - {id: 2, name: Globex, status: new, score: 40}
  - name: welcome_steps
    fields:
      - {name: subject, searchable: true}
      - {name: day, type: number}
`

func TestSeedBuild(t *testing.T) {
	seed, err := ReadSeed(strings.NewReader(seedDocument))
	require.NoError(t, err)
	require.Len(t, seed.Entities, 2)

	entities, err := seed.Build(context.Background(), MemoryFactory())
	require.NoError(t, err)
	require.Len(t, entities, 2)

	leads := entities[0]
	assert.Equal(t, "leads", leads.Name())
	assert.Equal(t, []string{"id", "name", "next_call", "score", "status"}, leads.Registry.Names())
	field, ok := leads.Registry.Lookup("next_call")
	require.True(t, ok)
	assert.Equal(t, "Next call", field.Label)

	record, err := leads.Repository.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", record["name"])
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), record["next_call"])

	result, err := entities[1].Repository.List(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
}

func TestSeedBuild_Errors(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{"invalid field type", "entities: [{name: leads, fields: [{name: score, type: money}]}]"},
		{"duplicate field", "entities: [{name: leads, fields: [{name: a}, {name: a}]}]"},
		{"record without id", "entities: [{name: leads, fields: [{name: a}], records: [{a: x}]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := ReadSeed(strings.NewReader(tt.document))
			require.NoError(t, err)
			_, err = seed.Build(context.Background(), MemoryFactory())
			assert.Error(t, err)
		})
	}

	_, err := ReadSeed(strings.NewReader("entities: ["))
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	seed, err := ReadSeed(strings.NewReader(seedDocument))
	require.NoError(t, err)
	entities, err := seed.Build(context.Background(), MemoryFactory())
	require.NoError(t, err)

	catalog, err := NewCatalog(entities...)
	require.NoError(t, err)
	version := catalog.Version()
	assert.Equal(t, int64(1), version)

	leads, err := catalog.Entity("leads")
	require.NoError(t, err)
	assert.Equal(t, "leads", leads.Name())

	_, err = catalog.Entity("deals")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	assert.Equal(t, map[string][]string{
		"leads":         {"id", "name", "next_call", "score", "status"},
		"welcome_steps": {"day", "id", "subject"},
	}, catalog.FieldNames())

	catalog.Put(entities[0])
	assert.Equal(t, version+1, catalog.Version())
	assert.Len(t, catalog.Entities(), 2)

	require.NoError(t, catalog.Replace(entities[1]))
	assert.Equal(t, version+2, catalog.Version())
	require.Len(t, catalog.Entities(), 1)
	assert.Equal(t, "welcome_steps", catalog.Entities()[0].Name())

	assert.Error(t, catalog.Replace(entities[1], entities[1]))
	assert.Error(t, catalog.Replace(&Entity{}))
	assert.Equal(t, version+2, catalog.Version())
}
