package rest

import (
	"github.com/crmkit/crm-data-apis/config"
	restEndpointV1 "github.com/crmkit/crm-data-apis/rest/endpoint/v1"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

type RouteGenerator struct {
	catalog   *store.Catalog
	ruleStore store.RuleStore
	config    config.Config
}

func NewRouteGenerator(
	catalog *store.Catalog,
	ruleStore store.RuleStore,
	cfg config.Config,
) *RouteGenerator {
	return &RouteGenerator{
		catalog:   catalog,
		ruleStore: ruleStore,
		config:    cfg,
	}
}

func (g *RouteGenerator) Routes(prefix string) []types.Route {
	return restEndpointV1.Routes(prefix, g.config, g.catalog, g.ruleStore)
}
