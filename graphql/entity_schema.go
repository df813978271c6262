package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/log"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

const (
	ascSuffix  = "_ASC"
	descSuffix = "_DESC"
)

// reservedNames are the type and field names of the built-in part of the
// schema. Entities mapping onto one of them are left out.
var reservedNames = map[string]bool{
	"Query": true, "Mutation": true, "Rule": true, "Condition": true, "Action": true,
	"ActionResult": true, "ApplyOutcome": true, "Operator": true, "Connector": true,
	"FilterInput": true, "ChangeInput": true, "Value": true, "Timestamp": true,
	"rule": true, "rules": true, "toggleRule": true, "applyRule": true,
}

type EntityGraphQLSchema struct {
	naming config.NamingConvention
	// A set of ignored entities
	ignoredEntities map[string]bool
	// A map containing the record type by entity name, with each field as scalar value
	valueTypes map[string]*graphql.Object
	// A map containing the result type by entity name for a list query
	resultTypes map[string]*graphql.Object
	// A map containing the order enum by entity name
	orderEnums map[string]*graphql.Enum
}

func (s *EntityGraphQLSchema) BuildTypes(entities []*store.Entity, naming config.NamingConvention, logger log.Logger) {
	s.naming = naming
	s.ignoredEntities = make(map[string]bool)
	s.valueTypes = make(map[string]*graphql.Object, len(entities))
	s.resultTypes = make(map[string]*graphql.Object, len(entities))
	s.orderEnums = make(map[string]*graphql.Enum, len(entities))

	for _, entity := range entities {
		name := entity.Name()
		typeName := naming.ToGraphQLType(name)
		if reservedNames[typeName] || reservedNames[naming.ToGraphQLField(name)] {
			logger.Warn("ignoring entity with a reserved graphql name", "entity", name, "type", typeName)
			s.ignoredEntities[name] = true
			continue
		}

		s.orderEnums[name] = buildOrderEnum(entity.Registry, naming)
		s.valueTypes[name] = buildValueType(entity.Registry, naming)
		s.resultTypes[name] = graphql.NewObject(graphql.ObjectConfig{
			Name: typeName + "Result",
			Fields: graphql.Fields{
				"values": {Type: graphql.NewList(graphql.NewNonNull(s.valueTypes[name]))},
				"count":  {Type: graphql.NewNonNull(graphql.Int)},
			},
		})
	}
}

func (s *EntityGraphQLSchema) isIgnored(entity string) bool {
	return s.ignoredEntities[entity]
}

func buildValueType(registry *filter.Registry, naming config.NamingConvention) *graphql.Object {
	fields := graphql.Fields{}
	for _, field := range registry.Fields() {
		fields[naming.ToGraphQLField(field.Name)] = &graphql.Field{
			Type:        buildType(field.Type),
			Description: field.Label,
		}
	}
	return graphql.NewObject(graphql.ObjectConfig{
		Name:   naming.ToGraphQLType(registry.Entity()),
		Fields: fields,
	})
}

func buildOrderEnum(registry *filter.Registry, naming config.NamingConvention) *graphql.Enum {
	values := make(graphql.EnumValueConfigMap, 2*len(registry.Fields()))
	for _, field := range registry.Fields() {
		values[naming.ToGraphQLEnumValue(field.Name)+ascSuffix] = &graphql.EnumValueConfig{
			Value:       field.Name + ascSuffix,
			Description: fmt.Sprintf("Order %s by %s in ascending order", registry.Entity(), field.Name),
		}
		values[naming.ToGraphQLEnumValue(field.Name)+descSuffix] = &graphql.EnumValueConfig{
			Value:       field.Name + descSuffix,
			Description: fmt.Sprintf("Order %s by %s in descending order", registry.Entity(), field.Name),
		}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:   naming.ToGraphQLType(registry.Entity() + "Order"),
		Values: values,
	})
}

func buildType(fieldType filter.FieldType) graphql.Output {
	switch fieldType {
	case filter.TypeNumber:
		return graphql.Float
	case filter.TypeBoolean:
		return graphql.Boolean
	case filter.TypeDate:
		return timestamp
	case filter.TypeList:
		return graphql.NewList(graphql.String)
	default:
		return graphql.String
	}
}

// adaptResult renames record attributes to their GraphQL field names.
func (s *EntityGraphQLSchema) adaptResult(registry *filter.Registry, records []types.Record) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		result = append(result, s.adaptRecord(registry, record))
	}
	return result
}

func (s *EntityGraphQLSchema) adaptRecord(registry *filter.Registry, record types.Record) map[string]interface{} {
	item := make(map[string]interface{}, len(record))
	for _, field := range registry.Fields() {
		value, ok := record[field.Name]
		if !ok {
			continue
		}
		if field.Type == filter.TypeList {
			value = adaptList(value)
		}
		item[s.naming.ToGraphQLField(field.Name)] = value
	}
	return item
}

func adaptList(value interface{}) interface{} {
	list, ok := value.([]interface{})
	if !ok {
		return value
	}
	result := make([]interface{}, len(list))
	for i, item := range list {
		result[i] = types.ToString(item)
	}
	return result
}
