package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crmkit/crm-data-apis/db"
	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

const selectLeads = `SELECT * FROM "crm"."leads"`
const selectLead = `SELECT * FROM "crm"."leads" WHERE "id" = ? LIMIT ?`

func leadRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": "3", "name": "Initech", "status": "new", "score": 62.0, "tags": []string{"software"}},
		{"id": "1", "name": "Acme", "status": "qualified", "score": 85.0, "tags": []string{"vip"}},
		{"id": "2", "name": "Globex", "status": "new", "score": 40.0, "tags": []string(nil)},
	}
}

func TestCqlRepository_EnsureTable(t *testing.T) {
	session := db.NewSessionMock()
	session.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo := NewCqlRepository(db.NewDbWithSession(session), "crm", leadsRegistry())

	require.NoError(t, repo.EnsureTable(context.Background()))
	session.AssertCalled(t, "Execute",
		`CREATE TABLE IF NOT EXISTS "crm"."leads" ("id" text PRIMARY KEY, "name" text, "status" text, `+
			`"score" double, "email" text, "tags" list<text>, "contacted" boolean, "next_call" timestamp)`,
		mock.Anything, []interface{}(nil))
}

func TestCqlRepository_List(t *testing.T) {
	session := db.NewSessionMock()
	session.On("ExecuteIter", selectLeads, mock.Anything, mock.Anything).Return(db.NewResultMock(leadRows()...), nil)
	repo := NewCqlRepository(db.NewDbWithSession(session), "crm", leadsRegistry())

	result, err := repo.List(context.Background(), Query{
		Rules: []filter.Rule{filter.Where("status", filter.Equals, "new")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(result.Values))
	assert.Equal(t, 62.0, result.Values[1]["score"])
	assert.Equal(t, []interface{}{"software"}, result.Values[1]["tags"])
}

func TestCqlRepository_Get(t *testing.T) {
	session := db.NewSessionMock()
	session.On("ExecuteIter", selectLead, mock.Anything, []interface{}{"1", 1}).
		Return(db.NewResultMock(leadRows()[1]), nil)
	session.On("ExecuteIter", selectLead, mock.Anything, []interface{}{"404", 1}).
		Return(db.NewResultMock(), nil)
	repo := NewCqlRepository(db.NewDbWithSession(session), "crm", leadsRegistry())

	record, err := repo.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", record["name"])

	_, err = repo.Get(context.Background(), "404")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestCqlRepository_Update(t *testing.T) {
	session := db.NewSessionMock()
	session.On("ExecuteIter",
		`UPDATE "crm"."leads" SET "score" = ?, "status" = ?, "tags" = ? WHERE "id" = ? IF EXISTS`,
		mock.Anything, []interface{}{75.0, "hot", []string{"a", "b"}, "1"}).
		Return(db.NewResultMock(map[string]interface{}{"[applied]": true}), nil)
	session.On("ExecuteIter", selectLead, mock.Anything, []interface{}{"1", 1}).
		Return(db.NewResultMock(types.Record{"id": "1", "status": "hot"}), nil)
	repo := NewCqlRepository(db.NewDbWithSession(session), "crm", leadsRegistry())

	updated, err := repo.Update(context.Background(), "1", types.Record{
		"status": "hot",
		"score":  75,
		"tags":   []interface{}{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hot", updated["status"])
	session.AssertExpectations(t)
}

func TestCqlRepository_UpdateMissing(t *testing.T) {
	session := db.NewSessionMock()
	session.On("ExecuteIter", mock.Anything, mock.Anything, mock.Anything).
		Return(db.NewResultMock(map[string]interface{}{"[applied]": false}), nil)
	repo := NewCqlRepository(db.NewDbWithSession(session), "crm", leadsRegistry())

	_, err := repo.Update(context.Background(), "404", types.Record{"status": "hot"})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = repo.Update(context.Background(), "1", types.Record{"revenue": 1})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestCqlRepository_Load(t *testing.T) {
	session := db.NewSessionMock()
	session.On("ExecuteIter", mock.Anything, mock.Anything, mock.Anything).
		Return(db.NewResultMock(map[string]interface{}{"[applied]": true}), nil)
	repo := NewCqlRepository(db.NewDbWithSession(session), "crm", leadsRegistry())

	require.NoError(t, repo.Load(context.Background(), []types.Record{{"id": 7, "name": "Hooli", "score": 12}}))
	session.AssertCalled(t, "ExecuteIter",
		`INSERT INTO "crm"."leads" ("id", "name", "score") VALUES (?, ?, ?) IF NOT EXISTS`,
		mock.Anything, []interface{}{"7", "Hooli", 12.0})

	assert.Error(t, repo.Load(context.Background(), []types.Record{{"name": "No id"}}))
}
