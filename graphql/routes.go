package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/log"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

type executeQueryFunc func(body RequestBody, ctx context.Context) *graphql.Result

type RouteGenerator struct {
	updateInterval time.Duration
	logger         log.Logger
	schemaGen      *SchemaGenerator
	updater        *SchemaUpdater
}

type RequestBody struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func NewRouteGenerator(catalog *store.Catalog, ruleStore store.RuleStore, cfg config.Config) *RouteGenerator {
	return &RouteGenerator{
		updateInterval: cfg.SchemaUpdateInterval(),
		logger:         cfg.Logger(),
		schemaGen:      NewSchemaGenerator(catalog, ruleStore, cfg),
	}
}

// Routes builds the GraphQL routes and starts refreshing the schema in the
// background. Stop ends the refresh.
func (rg *RouteGenerator) Routes(pattern string) ([]types.Route, error) {
	updater, err := NewUpdater(rg.schemaGen, rg.updateInterval, rg.logger)
	if err != nil {
		return nil, fmt.Errorf("unable to build graphql schema: %s", err)
	}
	rg.updater = updater

	go updater.Start()

	return routesForSchema(pattern, func(body RequestBody, ctx context.Context) *graphql.Result {
		return rg.executeQuery(body, ctx, *updater.Schema())
	}), nil
}

func (rg *RouteGenerator) Stop() {
	if rg.updater != nil {
		rg.updater.Stop()
	}
}

func routesForSchema(pattern string, execute executeQueryFunc) []types.Route {
	return []types.Route{
		{
			Method:  http.MethodGet,
			Pattern: pattern,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body := RequestBody{
					Query:         r.URL.Query().Get("query"),
					OperationName: r.URL.Query().Get("operationName"),
				}
				if variables := r.URL.Query().Get("variables"); variables != "" {
					if err := json.Unmarshal([]byte(variables), &body.Variables); err != nil {
						http.Error(w, "Variables are invalid", http.StatusBadRequest)
						return
					}
				}
				writeResult(w, execute(body, r.Context()))
			}),
		},
		{
			Method:  http.MethodPost,
			Pattern: pattern,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Body == nil {
					http.Error(w, "No request body", http.StatusBadRequest)
					return
				}

				var body RequestBody
				err := json.NewDecoder(r.Body).Decode(&body)
				if err != nil {
					http.Error(w, "Request body is invalid", http.StatusBadRequest)
					return
				}

				writeResult(w, execute(body, r.Context()))
			}),
		},
	}
}

func writeResult(w http.ResponseWriter, result *graphql.Result) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(result)
	if err != nil {
		http.Error(w, "response could not be encoded: "+err.Error(), http.StatusInternalServerError)
	}
}

func (rg *RouteGenerator) executeQuery(body RequestBody, ctx context.Context, schema graphql.Schema) *graphql.Result {
	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  body.Query,
		OperationName:  body.OperationName,
		VariableValues: body.Variables,
		Context:        ctx,
	})
	if len(result.Errors) > 0 {
		rg.logger.Debug("errors processing graphql query", "errors", result.Errors)
	}
	return result
}
