// Package endpoint wires the catalog, the rule store and the REST and
// GraphQL route generators into a single embeddable endpoint.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/db"
	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/graphql"
	"github.com/crmkit/crm-data-apis/log"
	"github.com/crmkit/crm-data-apis/rest"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

const DefaultSchemaUpdateDuration = 10 * time.Second

type CrmEndpointConfig struct {
	seedFile       string
	rulesFile      string
	dbHosts        []string
	dbKeyspace     string
	dbUsername     string
	dbPassword     string
	sqlDriver      string
	sqlDSN         string
	updateInterval time.Duration
	naming         config.NamingConventionFn
	supportedOps   config.Operations
	policy         filter.UnknownOperatorPolicy
	logger         log.Logger
}

func (cfg CrmEndpointConfig) SchemaUpdateInterval() time.Duration {
	return cfg.updateInterval
}

func (cfg CrmEndpointConfig) Naming() config.NamingConventionFn {
	return cfg.naming
}

func (cfg CrmEndpointConfig) SupportedOperations() config.Operations {
	return cfg.supportedOps
}

func (cfg CrmEndpointConfig) UnknownOperatorPolicy() filter.UnknownOperatorPolicy {
	return cfg.policy
}

func (cfg CrmEndpointConfig) Logger() log.Logger {
	return cfg.logger
}

// WithSeedFile sets the YAML or JSON document describing the entities and
// their initial records.
func (cfg *CrmEndpointConfig) WithSeedFile(seedFile string) *CrmEndpointConfig {
	cfg.seedFile = seedFile
	return cfg
}

// WithRulesFile sets the document rules are read from and persisted to.
func (cfg *CrmEndpointConfig) WithRulesFile(rulesFile string) *CrmEndpointConfig {
	cfg.rulesFile = rulesFile
	return cfg
}

// WithDbHosts keeps the records in Cassandra tables of the keyspace.
func (cfg *CrmEndpointConfig) WithDbHosts(keyspace string, hosts ...string) *CrmEndpointConfig {
	cfg.dbKeyspace = keyspace
	cfg.dbHosts = hosts
	return cfg
}

func (cfg *CrmEndpointConfig) WithDbUsername(dbUsername string) *CrmEndpointConfig {
	cfg.dbUsername = dbUsername
	return cfg
}

func (cfg *CrmEndpointConfig) WithDbPassword(dbPassword string) *CrmEndpointConfig {
	cfg.dbPassword = dbPassword
	return cfg
}

// WithSQL keeps the records in a SQL database, driver being "sqlite" or "pgx".
func (cfg *CrmEndpointConfig) WithSQL(driver string, dsn string) *CrmEndpointConfig {
	cfg.sqlDriver = driver
	cfg.sqlDSN = dsn
	return cfg
}

func (cfg *CrmEndpointConfig) WithSchemaUpdateInterval(updateInterval time.Duration) *CrmEndpointConfig {
	cfg.updateInterval = updateInterval
	return cfg
}

func (cfg *CrmEndpointConfig) WithNaming(naming config.NamingConventionFn) *CrmEndpointConfig {
	cfg.naming = naming
	return cfg
}

func (cfg *CrmEndpointConfig) WithSupportedOperations(supportedOps config.Operations) *CrmEndpointConfig {
	cfg.supportedOps = supportedOps
	return cfg
}

func (cfg *CrmEndpointConfig) WithUnknownOperatorPolicy(policy filter.UnknownOperatorPolicy) *CrmEndpointConfig {
	cfg.policy = policy
	return cfg
}

// NewEndpoint opens the record backend, builds the catalog out of the seed
// file and loads the rules.
func (cfg CrmEndpointConfig) NewEndpoint(ctx context.Context) (*CrmEndpoint, error) {
	if len(cfg.dbHosts) > 0 && cfg.sqlDriver != "" {
		return nil, errors.New("records are kept either in Cassandra or in a SQL database, not both")
	}

	factory, closer, err := cfg.repositoryFactory(ctx)
	if err != nil {
		return nil, err
	}

	endpoint, err := cfg.newEndpointWithFactory(ctx, factory)
	if err != nil {
		closer()
		return nil, err
	}
	endpoint.closer = closer
	return endpoint, nil
}

func (cfg CrmEndpointConfig) repositoryFactory(ctx context.Context) (store.RepositoryFactory, func(), error) {
	opts := []filter.Option{filter.WithUnknownOperatorPolicy(cfg.policy)}

	switch {
	case len(cfg.dbHosts) > 0:
		if cfg.dbKeyspace == "" {
			return nil, nil, errors.New("a keyspace is required to keep records in Cassandra")
		}
		dbClient, err := db.NewDb(cfg.dbUsername, cfg.dbPassword, cfg.dbHosts...)
		if err != nil {
			return nil, nil, err
		}
		return func(ctx context.Context, registry *filter.Registry) (store.Repository, error) {
			repository := store.NewCqlRepository(dbClient, cfg.dbKeyspace, registry, opts...)
			if err := repository.EnsureTable(ctx); err != nil {
				return nil, err
			}
			return repository, nil
		}, dbClient.Close, nil
	case cfg.sqlDriver != "":
		database, dialect, err := store.OpenSQL(ctx, cfg.sqlDriver, cfg.sqlDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open %s database: %w", cfg.sqlDriver, err)
		}
		return func(ctx context.Context, registry *filter.Registry) (store.Repository, error) {
			return store.NewSQLRepository(database, dialect, registry, opts...), nil
		}, func() { _ = database.Close() }, nil
	}
	return store.MemoryFactory(opts...), func() {}, nil
}

func (cfg CrmEndpointConfig) newEndpointWithFactory(ctx context.Context, factory store.RepositoryFactory) (*CrmEndpoint, error) {
	entities, err := buildEntities(ctx, cfg.seedFile, factory)
	if err != nil {
		return nil, err
	}
	catalog, err := store.NewCatalog(entities...)
	if err != nil {
		return nil, err
	}

	var ruleStore store.RuleStore = store.NewMemoryRuleStore()
	if cfg.rulesFile != "" {
		ruleStore, err = store.LoadRuleStore(cfg.rulesFile)
		if err != nil {
			return nil, err
		}
	}

	return cfg.newEndpoint(catalog, ruleStore, factory), nil
}

func (cfg CrmEndpointConfig) newEndpoint(catalog *store.Catalog, ruleStore store.RuleStore, factory store.RepositoryFactory) *CrmEndpoint {
	return &CrmEndpoint{
		catalog:         catalog,
		ruleStore:       ruleStore,
		factory:         factory,
		seedFile:        cfg.seedFile,
		logger:          cfg.logger,
		closer:          func() {},
		graphQLRouteGen: graphql.NewRouteGenerator(catalog, ruleStore, cfg),
		restRouteGen:    rest.NewRouteGenerator(catalog, ruleStore, cfg),
	}
}

func buildEntities(ctx context.Context, seedFile string, factory store.RepositoryFactory) ([]*store.Entity, error) {
	if seedFile == "" {
		return nil, nil
	}
	seed, err := store.LoadSeed(seedFile)
	if err != nil {
		return nil, err
	}
	return seed.Build(ctx, factory)
}

type CrmEndpoint struct {
	catalog         *store.Catalog
	ruleStore       store.RuleStore
	factory         store.RepositoryFactory
	seedFile        string
	logger          log.Logger
	closer          func()
	graphQLRouteGen *graphql.RouteGenerator
	restRouteGen    *rest.RouteGenerator
}

func NewEndpointConfig() (*CrmEndpointConfig, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewEndpointConfigWithLogger(log.NewZapLogger(logger)), nil
}

func NewEndpointConfigWithLogger(logger log.Logger) *CrmEndpointConfig {
	return &CrmEndpointConfig{
		updateInterval: DefaultSchemaUpdateDuration,
		naming:         config.NewDefaultNaming,
		supportedOps:   config.AllOperations,
		policy:         filter.NoMatch,
		logger:         logger,
	}
}

func (e *CrmEndpoint) Catalog() *store.Catalog {
	return e.catalog
}

func (e *CrmEndpoint) RuleStore() store.RuleStore {
	return e.ruleStore
}

// RoutesGraphQL returns the GraphQL routes. The schema follows catalog
// changes until Close is called.
func (e *CrmEndpoint) RoutesGraphQL(pattern string) ([]types.Route, error) {
	return e.graphQLRouteGen.Routes(pattern)
}

func (e *CrmEndpoint) RoutesRest(pattern string) []types.Route {
	return e.restRouteGen.Routes(pattern)
}

// ReloadSeed rebuilds the entities from the seed file and swaps them into
// the catalog.
func (e *CrmEndpoint) ReloadSeed(ctx context.Context) error {
	if e.seedFile == "" {
		return errors.New("no seed file configured")
	}
	entities, err := buildEntities(ctx, e.seedFile, e.factory)
	if err != nil {
		return err
	}
	if err := e.catalog.Replace(entities...); err != nil {
		return err
	}
	e.logger.Info("seed reloaded", "path", e.seedFile, "entities", len(entities))
	return nil
}

// WatchSeed reloads the seed file every time it changes until the context
// is done.
func (e *CrmEndpoint) WatchSeed(ctx context.Context) error {
	if e.seedFile == "" {
		return errors.New("no seed file configured")
	}
	return store.Watch(ctx, e.seedFile, e.logger, func() error {
		return e.ReloadSeed(ctx)
	})
}

// Close stops the schema updates and releases the record backend.
func (e *CrmEndpoint) Close() {
	e.graphQLRouteGen.Stop()
	e.closer()
}
