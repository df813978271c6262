package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crmkit/crm-data-apis/auth"
	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/internal/testutil/fixtures"
	"github.com/crmkit/crm-data-apis/log"
	"github.com/crmkit/crm-data-apis/store"
)

type schemaFixture struct {
	schema  graphql.Schema
	catalog *store.Catalog
}

func buildSchema(t *testing.T, cfg config.Config) schemaFixture {
	catalog := fixtures.Catalog()
	schema, err := NewSchemaGenerator(catalog, fixtures.RuleStore(), cfg).BuildSchema()
	require.NoError(t, err)
	return schemaFixture{schema: schema, catalog: catalog}
}

func (f schemaFixture) do(t *testing.T, query string) map[string]interface{} {
	result := graphql.Do(graphql.Params{
		Schema:        f.schema,
		RequestString: query,
		Context:       auth.WithContextUser(context.Background(), "graphql-user"),
	})
	require.Empty(t, result.Errors, "unexpected errors: %v", result.Errors)
	return result.Data.(map[string]interface{})
}

func (f schemaFixture) errors(query string) []string {
	result := graphql.Do(graphql.Params{Schema: f.schema, RequestString: query, Context: context.Background()})
	messages := make([]string, len(result.Errors))
	for i, err := range result.Errors {
		messages[i] = err.Message
	}
	return messages
}

func names(values interface{}) []string {
	var result []string
	for _, value := range values.([]interface{}) {
		result = append(result, value.(map[string]interface{})["name"].(string))
	}
	return result
}

func TestBuildSchema_EntityTypes(t *testing.T) {
	f := buildSchema(t, config.NewConfigMock().Default())

	leads := f.schema.Type("Leads").(*graphql.Object)
	fields := leads.Fields()
	assert.Equal(t, graphql.String, fields["name"].Type)
	assert.Equal(t, graphql.Float, fields["score"].Type)
	assert.Equal(t, graphql.Boolean, fields["contacted"].Type)
	assert.Equal(t, "Timestamp", fields["createdAt"].Type.Name())
	assert.Equal(t, "Company", fields["name"].Description)

	operator := f.schema.Type("Operator").(*graphql.Enum)
	var values []string
	for _, v := range operator.Values() {
		values = append(values, v.Name)
	}
	assert.Len(t, values, len(filter.Operators()))
	assert.Contains(t, values, "GREATER_THAN")
	assert.Contains(t, values, "MATCHES_REGEX")

	assert.NotNil(t, f.schema.Type("LeadsOrder"))
	assert.Contains(t, f.schema.QueryType().Fields(), "dealsById")
	assert.Contains(t, f.schema.MutationType().Fields(), "updateDeals")
}

func TestBuildSchema_DisabledOperations(t *testing.T) {
	cfg := config.NewConfigMock()
	cfg.On("Naming").Return(config.NamingConventionFn(config.NewDefaultNaming))
	cfg.On("SupportedOperations").Return(config.Operations(0))
	cfg.On("UnknownOperatorPolicy").Return(filter.NoMatch)
	cfg.On("Logger").Return(log.NewZapLogger(zap.NewNop()))
	f := buildSchema(t, cfg)

	mutations := f.schema.MutationType().Fields()
	assert.NotContains(t, mutations, "updateLeads")
	assert.NotContains(t, mutations, "toggleRule")
	assert.Contains(t, mutations, "applyRule")

	assert.Equal(t, []string{"operation RecordUpdate is not supported"},
		f.errors(`mutation { applyRule(id: "hot-tech-leads", commit: true) { matched } }`))
}

func TestQuery_Filters(t *testing.T) {
	f := buildSchema(t, config.NewConfigMock().Default())

	tests := []struct {
		name  string
		query string
		names []string
		count int
	}{
		{
			name: "qualified tech leads above 70",
			query: `{ leads(filters: [
				{field: "status", operator: EQUALS, value: "qualified"},
				{field: "industry", operator: EQUALS, value: "tech"},
				{field: "score", operator: GREATER_THAN, value: 70}
			]) { values { name } count } }`,
			names: []string{"Acme"},
			count: 1,
		}, {
			name: "or connector and order",
			query: `{ leads(filters: [
				{field: "status", operator: EQUALS, value: "qualified"},
				{field: "score", operator: LESS_THAN, value: 50, connector: OR}
			], orderBy: [SCORE_ASC]) { values { name } count } }`,
			names: []string{"Globex", "Acme"},
			count: 2,
		}, {
			name:  "search with paging",
			query: `{ leads(search: ".com", orderBy: [NAME_DESC], limit: 1) { values { name } count } }`,
			names: []string{"Initech"},
			count: 2,
		}, {
			name:  "camel case fields",
			query: `{ leads(filters: [{field: "createdAt", operator: GREATER_THAN, value: "2024-02-15"}]) { values { name } count } }`,
			names: []string{"Initech"},
			count: 1,
		}, {
			name:  "in list",
			query: `{ leads(filters: [{field: "industry", operator: IN_LIST, value: ["software", "retail"]}]) { values { name } count } }`,
			names: []string{"Initech"},
			count: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := f.do(t, tt.query)
			leads := data["leads"].(map[string]interface{})
			assert.Equal(t, tt.names, names(leads["values"]))
			assert.Equal(t, tt.count, leads["count"])
		})
	}
}

func TestQuery_Errors(t *testing.T) {
	f := buildSchema(t, config.NewConfigMock().Default())

	assert.NotEmpty(t, f.errors(`{ leads(filters: [{field: "status", operator: BOGUS_OP, value: "x"}]) { count } }`))
	assert.NotEmpty(t, f.errors(`{ leads(filters: [{field: "revenue", operator: IS_EMPTY}]) { count } }`))
	assert.NotEmpty(t, f.errors(`{ leads(filters: [{field: "score", operator: IS_TRUE}]) { count } }`))
	assert.NotEmpty(t, f.errors(`{ leads(limit: -1) { count } }`))
}

func TestQuery_ById(t *testing.T) {
	f := buildSchema(t, config.NewConfigMock().Default())

	data := f.do(t, `{ leadsById(id: "1") { id name tags createdAt } missing: leadsById(id: "404") { id } }`)
	lead := data["leadsById"].(map[string]interface{})
	assert.Equal(t, "Acme", lead["name"])
	assert.Equal(t, []interface{}{"vip"}, lead["tags"])
	assert.Equal(t, "2024-01-15T00:00:00Z", lead["createdAt"])
	assert.Nil(t, data["missing"])
}

func TestMutation_Update(t *testing.T) {
	f := buildSchema(t, config.NewConfigMock().Default())

	data := f.do(t, `mutation { updateLeads(id: "2", changes: [
		{field: "status", value: "qualified"},
		{field: "score", value: 75}
	]) { id status score } }`)
	lead := data["updateLeads"].(map[string]interface{})
	assert.Equal(t, "qualified", lead["status"])
	assert.Equal(t, 75.0, lead["score"])

	assert.NotEmpty(t, f.errors(`mutation { updateLeads(id: "2", changes: [{field: "score", value: "high"}]) { id } }`))
	assert.NotEmpty(t, f.errors(`mutation { updateLeads(id: "404", changes: [{field: "status", value: "new"}]) { id } }`))
	assert.NotEmpty(t, f.errors(`mutation { updateLeads(id: "2", changes: [
		{field: "status", value: "new"}, {field: "status", value: "lost"}]) { id } }`))
}

func TestRules(t *testing.T) {
	f := buildSchema(t, config.NewConfigMock().Default())

	data := f.do(t, `{ rules(entity: "leads") { id name state enabled description conditions { field operator } actions { kind tag } } }`)
	list := data["rules"].([]interface{})
	require.Len(t, list, 1)
	rule := list[0].(map[string]interface{})
	assert.Equal(t, "hot-tech-leads", rule["id"])
	assert.Equal(t, "saved", rule["state"])
	assert.Equal(t,
		`when status equals "qualified" AND industry equals "tech" AND score is greater than 70 then tag "hot", notify by email`,
		rule["description"])
	assert.Len(t, rule["conditions"], 3)

	data = f.do(t, `{ rules(entity: "deals") { id } rule(id: "404") { id } }`)
	assert.Empty(t, data["rules"])
	assert.Nil(t, data["rule"])

	data = f.do(t, `mutation { toggleRule(id: "hot-tech-leads") { enabled state updatedBy } }`)
	toggled := data["toggleRule"].(map[string]interface{})
	assert.Equal(t, false, toggled["enabled"])
	assert.Equal(t, "saved", toggled["state"])
	assert.Equal(t, "graphql-user", toggled["updatedBy"])
}

func TestMutation_ApplyRule(t *testing.T) {
	f := buildSchema(t, config.NewConfigMock().Default())

	data := f.do(t, `mutation { applyRule(id: "hot-tech-leads") { matched updated results { recordId kind recipient message } } }`)
	outcome := data["applyRule"].(map[string]interface{})
	assert.Equal(t, 1, outcome["matched"])
	assert.Equal(t, 0, outcome["updated"])
	results := outcome["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, "Hi Acme, let's talk", results[1].(map[string]interface{})["message"])

	data = f.do(t, `mutation { applyRule(id: "hot-tech-leads", commit: true) { updated } }`)
	assert.Equal(t, 1, data["applyRule"].(map[string]interface{})["updated"])

	data = f.do(t, `{ leadsById(id: "1") { tags } }`)
	assert.Equal(t, []interface{}{"vip", "hot"}, data["leadsById"].(map[string]interface{})["tags"])

	assert.NotEmpty(t, f.errors(`mutation { applyRule(id: "404") { matched } }`))
}

func TestRoutes(t *testing.T) {
	rg := NewRouteGenerator(fixtures.Catalog(), fixtures.RuleStore(), config.NewConfigMock().Default())
	routes, err := rg.Routes("/graphql")
	require.NoError(t, err)
	defer rg.Stop()

	var post, get http.Handler
	for _, route := range routes {
		if route.Method == http.MethodPost {
			post = route.Handler
		} else {
			get = route.Handler
		}
	}

	body, _ := json.Marshal(RequestBody{
		Query:     `query Lead($id: String!) { leadsById(id: $id) { name } }`,
		Variables: map[string]interface{}{"id": "3"},
	})
	w := httptest.NewRecorder()
	post.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data": {"leadsById": {"name": "Initech"}}}`, w.Body.String())

	w = httptest.NewRecorder()
	get.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?query=%7Bdeals%7Bcount%7D%7D", nil))
	assert.JSONEq(t, `{"data": {"deals": {"count": 2}}}`, w.Body.String())

	w = httptest.NewRecorder()
	post.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaygroundRoute(t *testing.T) {
	route := PlaygroundRoute("/graphql-playground", "/graphql")
	w := httptest.NewRecorder()
	route.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql-playground", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `endpoint: "(\\/|/)graphql"`, w.Body.String())
	assert.Contains(t, w.Body.String(), "graphql-playground-react@"+playgroundVersion)
}
