package graphql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/mitchellh/mapstructure"

	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

type queryArgs struct {
	Search  string        `mapstructure:"search"`
	Filters []filter.Rule `mapstructure:"filters"`
	OrderBy []string      `mapstructure:"orderBy"`
	Limit   int           `mapstructure:"limit"`
	Offset  int           `mapstructure:"offset"`
}

type change struct {
	Field string      `mapstructure:"field"`
	Value interface{} `mapstructure:"value"`
}

type applyArgs struct {
	ID        string   `mapstructure:"id"`
	RecordIDs []string `mapstructure:"recordIds"`
	Commit    bool     `mapstructure:"commit"`
}

func (sg *SchemaGenerator) queryFieldResolver(entity *store.Entity, entitySchema *EntityGraphQLSchema) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (interface{}, error) {
		var args queryArgs
		if err := mapstructure.Decode(params.Args, &args); err != nil {
			return nil, err
		}
		if args.Limit < 0 || args.Offset < 0 {
			return nil, errors.New("limit and offset must not be negative")
		}

		filters := make([]filter.Rule, len(args.Filters))
		for i, rule := range args.Filters {
			rule.Field = entitySchema.naming.ToRecordField(entity.Name(), rule.Field)
			filters[i] = rule
		}
		if err := filter.Validate(filters, entity.Registry); err != nil {
			return nil, err
		}

		result, err := entity.Repository.List(params.Context, store.Query{
			Search:  strings.TrimSpace(args.Search),
			Rules:   filters,
			OrderBy: parseFieldOrder(args.OrderBy),
			Limit:   args.Limit,
			Offset:  args.Offset,
		})
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"values": entitySchema.adaptResult(entity.Registry, result.Values),
			"count":  result.Count,
		}, nil
	}
}

func (sg *SchemaGenerator) byIDFieldResolver(entity *store.Entity, entitySchema *EntityGraphQLSchema) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (interface{}, error) {
		record, err := entity.Repository.Get(params.Context, params.Args["id"].(string))
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return entitySchema.adaptRecord(entity.Registry, record), nil
	}
}

func (sg *SchemaGenerator) updateFieldResolver(entity *store.Entity, entitySchema *EntityGraphQLSchema) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (interface{}, error) {
		var changes []change
		if err := mapstructure.Decode(params.Args["changes"], &changes); err != nil {
			return nil, err
		}
		if len(changes) == 0 {
			return nil, errors.New("changes must not be empty")
		}

		patch := make(types.Record, len(changes))
		for _, c := range changes {
			name := entitySchema.naming.ToRecordField(entity.Name(), c.Field)
			if _, duplicated := patch[name]; duplicated {
				return nil, fmt.Errorf("field %s is changed more than once", c.Field)
			}
			patch[name] = c.Value
		}

		id := params.Args["id"].(string)
		record, err := entity.Repository.Update(params.Context, id, patch)
		if err != nil {
			return nil, err
		}
		sg.logger.Debug("record updated", "entity", entity.Name(), "id", id)
		return entitySchema.adaptRecord(entity.Registry, record), nil
	}
}

func (sg *SchemaGenerator) rulesResolver(params graphql.ResolveParams) (interface{}, error) {
	list, err := sg.ruleStore.List(params.Context)
	if err != nil {
		return nil, err
	}

	entityName, _ := params.Args["entity"].(string)
	result := make([]map[string]interface{}, 0, len(list))
	for _, rule := range list {
		if entityName == "" || rule.Entity == entityName {
			result = append(result, adaptRule(rule, sg.registry(rule.Entity)))
		}
	}
	return result, nil
}

func (sg *SchemaGenerator) ruleResolver(params graphql.ResolveParams) (interface{}, error) {
	rule, err := sg.ruleStore.Get(params.Context, params.Args["id"].(string))
	if errors.Is(err, store.ErrRuleNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return adaptRule(rule, sg.registry(rule.Entity)), nil
}

func (sg *SchemaGenerator) toggleRuleResolver(params graphql.ResolveParams) (interface{}, error) {
	rule, err := sg.ruleStore.Get(params.Context, params.Args["id"].(string))
	if err != nil {
		return nil, err
	}
	toggled, err := rule.ToggleEnabled()
	if err != nil {
		return nil, err
	}
	stored, err := sg.ruleStore.Put(params.Context, toggled)
	if err != nil {
		return nil, err
	}
	return adaptRule(stored, sg.registry(stored.Entity)), nil
}

func (sg *SchemaGenerator) applyRuleResolver(params graphql.ResolveParams) (interface{}, error) {
	var args applyArgs
	if err := mapstructure.Decode(params.Args, &args); err != nil {
		return nil, err
	}
	if args.Commit && !sg.supportedOperations.IsSupported(config.RecordUpdate) {
		return nil, fmt.Errorf("operation %s is not supported", config.RecordUpdate)
	}

	rule, err := sg.ruleStore.Get(params.Context, args.ID)
	if err != nil {
		return nil, err
	}
	entity, err := sg.catalog.Entity(rule.Entity)
	if err != nil {
		return nil, err
	}

	outcome, err := store.ApplyRule(params.Context, entity, rule, sg.policy, args.RecordIDs, args.Commit)
	if err != nil {
		return nil, err
	}
	if args.Commit {
		sg.logger.Info("rule applied", "rule", rule.ID, "matched", outcome.Matched, "updated", outcome.Updated)
	}
	return adaptOutcome(outcome), nil
}

func (sg *SchemaGenerator) registry(entity string) *filter.Registry {
	if e, err := sg.catalog.Entity(entity); err == nil {
		return e.Registry
	}
	return nil
}

// parseFieldOrder splits order enum values like "score_DESC".
func parseFieldOrder(values []string) []filter.Order {
	result := make([]filter.Order, 0, len(values))
	for _, value := range values {
		index := strings.LastIndex(value, "_")
		if index < 0 {
			continue
		}
		result = append(result, filter.Order{
			Field:     value[:index],
			Direction: filter.Direction(value[index+1:]),
		})
	}
	return result
}
