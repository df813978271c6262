package endpoint

import (
	"net/http"
	"path"

	"github.com/julienschmidt/httprouter"

	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/log"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

// Path formats of the routes, in fmt form, relative to the prefix.
const (
	EntitiesPathFormat      = "/v1/entities"
	EntityPathFormat        = "/v1/entities/%s"
	RecordsPathFormat       = "/v1/entities/%s/records"
	RecordsQueryPathFormat  = "/v1/entities/%s/records/query"
	RecordsExportPathFormat = "/v1/entities/%s/records/export"
	RecordsImportPathFormat = "/v1/entities/%s/records/import"
	ExportPathFormat        = "/v1/entities/%s/export"
	RecordPathFormat        = "/v1/entities/%s/records/%s"
	RulesPathFormat         = "/v1/rules"
	RulePathFormat          = "/v1/rules/%s"
	RuleSavePathFormat      = "/v1/rules/%s/save"
	RuleTogglePathFormat    = "/v1/rules/%s/toggle"
	RuleApplyPathFormat     = "/v1/rules/%s/apply"
	ConditionsPathFormat    = "/v1/rules/%s/conditions"
	ConditionPathFormat     = "/v1/rules/%s/conditions/%s"
	ActionsPathFormat       = "/v1/rules/%s/actions"
	ActionPathFormat        = "/v1/rules/%s/actions/%s"
)

type routeList struct {
	catalog   *store.Catalog
	ruleStore store.RuleStore
	config    config.Config
	logger    log.Logger
	params    func(*http.Request, string) string
}

func routerParams(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

// Routes returns a slice of all the endpoint routes
func Routes(prefix string, cfg config.Config, catalog *store.Catalog, ruleStore store.RuleStore) []types.Route {
	rl := routeList{
		catalog:   catalog,
		ruleStore: ruleStore,
		config:    cfg,
		logger:    cfg.Logger(),
		params:    routerParams,
	}

	route := func(method, pattern string, handler http.HandlerFunc) types.Route {
		return types.Route{Method: method, Pattern: path.Join(prefix, pattern), Handler: handler}
	}

	return []types.Route{
		route(http.MethodGet, "/v1/entities", rl.GetEntities),
		route(http.MethodGet, "/v1/entities/:entity", rl.GetEntity),
		route(http.MethodGet, "/v1/entities/:entity/records", rl.GetRecords),
		route(http.MethodPost, "/v1/entities/:entity/records/query", rl.QueryRecords),
		route(http.MethodPost, "/v1/entities/:entity/records/export", rl.ExportQuery),
		route(http.MethodPost, "/v1/entities/:entity/records/import", rl.ImportRecords),
		route(http.MethodGet, "/v1/entities/:entity/export", rl.ExportRecords),
		route(http.MethodGet, "/v1/entities/:entity/records/:id", rl.GetRecord),
		route(http.MethodPatch, "/v1/entities/:entity/records/:id", rl.UpdateRecord),

		route(http.MethodGet, "/v1/rules", rl.GetRules),
		route(http.MethodPost, "/v1/rules", rl.AddRule),
		route(http.MethodGet, "/v1/rules/:ruleId", rl.GetRule),
		route(http.MethodDelete, "/v1/rules/:ruleId", rl.DeleteRule),
		route(http.MethodPost, "/v1/rules/:ruleId/save", rl.SaveRule),
		route(http.MethodPost, "/v1/rules/:ruleId/toggle", rl.ToggleRule),
		route(http.MethodPost, "/v1/rules/:ruleId/apply", rl.ApplyRule),
		route(http.MethodPost, "/v1/rules/:ruleId/conditions", rl.AddCondition),
		route(http.MethodPut, "/v1/rules/:ruleId/conditions/:itemId", rl.UpdateCondition),
		route(http.MethodDelete, "/v1/rules/:ruleId/conditions/:itemId", rl.DeleteCondition),
		route(http.MethodPost, "/v1/rules/:ruleId/actions", rl.AddAction),
		route(http.MethodPut, "/v1/rules/:ruleId/actions/:itemId", rl.UpdateAction),
		route(http.MethodDelete, "/v1/rules/:ruleId/actions/:itemId", rl.DeleteAction),
	}
}
