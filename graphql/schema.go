// Package graphql serves the catalog entities and the rules over GraphQL.
// The schema is generated from the field registries of the catalog.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/log"
	"github.com/crmkit/crm-data-apis/store"
)

const (
	updatePrefix = "update"
	byIDSuffix   = "ById"
)

type SchemaGenerator struct {
	catalog             *store.Catalog
	ruleStore           store.RuleStore
	naming              config.NamingConventionFn
	supportedOperations config.Operations
	policy              filter.UnknownOperatorPolicy
	logger              log.Logger
}

func NewSchemaGenerator(catalog *store.Catalog, ruleStore store.RuleStore, cfg config.Config) *SchemaGenerator {
	return &SchemaGenerator{
		catalog:             catalog,
		ruleStore:           ruleStore,
		naming:              cfg.Naming(),
		supportedOperations: cfg.SupportedOperations(),
		policy:              cfg.UnknownOperatorPolicy(),
		logger:              cfg.Logger(),
	}
}

// BuildSchema builds the GraphQL schema for the current catalog entities.
func (sg *SchemaGenerator) BuildSchema() (graphql.Schema, error) {
	entities := sg.catalog.Entities()
	naming := sg.naming(sg.catalog.FieldNames())

	entitySchema := &EntityGraphQLSchema{}
	entitySchema.BuildTypes(entities, naming, sg.logger)
	inputs := buildInputTypes(naming)

	return graphql.NewSchema(
		graphql.SchemaConfig{
			Query:    sg.buildQuery(entities, entitySchema, inputs),
			Mutation: sg.buildMutation(entities, entitySchema),
		},
	)
}

func (sg *SchemaGenerator) buildQuery(
	entities []*store.Entity,
	entitySchema *EntityGraphQLSchema,
	inputs *inputTypes,
) *graphql.Object {
	fields := graphql.Fields{}
	for _, entity := range entities {
		if entitySchema.isIgnored(entity.Name()) {
			continue
		}
		name := entitySchema.naming.ToGraphQLField(entity.Name())
		fields[name] = &graphql.Field{
			Type: entitySchema.resultTypes[entity.Name()],
			Args: graphql.FieldConfigArgument{
				"search":  {Type: graphql.String},
				"filters": {Type: graphql.NewList(graphql.NewNonNull(inputs.filterInput))},
				"orderBy": {Type: graphql.NewList(graphql.NewNonNull(entitySchema.orderEnums[entity.Name()]))},
				"limit":   {Type: graphql.Int},
				"offset":  {Type: graphql.Int},
			},
			Resolve: sg.queryFieldResolver(entity, entitySchema),
		}
		fields[name+byIDSuffix] = &graphql.Field{
			Type: entitySchema.valueTypes[entity.Name()],
			Args: graphql.FieldConfigArgument{
				"id": {Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: sg.byIDFieldResolver(entity, entitySchema),
		}
	}

	fields["rules"] = &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(ruleType)),
		Args: graphql.FieldConfigArgument{
			"entity": {Type: graphql.String},
		},
		Resolve: sg.rulesResolver,
	}
	fields["rule"] = &graphql.Field{
		Type: ruleType,
		Args: graphql.FieldConfigArgument{
			"id": {Type: graphql.NewNonNull(graphql.String)},
		},
		Resolve: sg.ruleResolver,
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: fields,
	})
}

// buildMutation leaves out the mutations of the disabled operations.
func (sg *SchemaGenerator) buildMutation(entities []*store.Entity, entitySchema *EntityGraphQLSchema) *graphql.Object {
	fields := graphql.Fields{}
	if sg.supportedOperations.IsSupported(config.RecordUpdate) {
		for _, entity := range entities {
			if entitySchema.isIgnored(entity.Name()) {
				continue
			}
			fields[entitySchema.naming.ToGraphQLFieldPrefix(updatePrefix, entity.Name())] = &graphql.Field{
				Type: entitySchema.valueTypes[entity.Name()],
				Args: graphql.FieldConfigArgument{
					"id":      {Type: graphql.NewNonNull(graphql.String)},
					"changes": {Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(changeInput)))},
				},
				Resolve: sg.updateFieldResolver(entity, entitySchema),
			}
		}
	}

	if sg.supportedOperations.IsSupported(config.RuleUpdate) {
		fields["toggleRule"] = &graphql.Field{
			Type: ruleType,
			Args: graphql.FieldConfigArgument{
				"id": {Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: sg.toggleRuleResolver,
		}
	}

	fields["applyRule"] = &graphql.Field{
		Type: applyOutcomeType,
		Args: graphql.FieldConfigArgument{
			"id":        {Type: graphql.NewNonNull(graphql.String)},
			"recordIds": {Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
			"commit":    {Type: graphql.Boolean, DefaultValue: false},
		},
		Resolve: sg.applyRuleResolver,
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:   "Mutation",
		Fields: fields,
	})
}
