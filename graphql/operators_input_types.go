package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/crmkit/crm-data-apis/config"
	"github.com/crmkit/crm-data-apis/filter"
)

var connectorEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "Connector",
	Values: graphql.EnumValueConfigMap{
		"AND": {Value: string(filter.And)},
		"OR":  {Value: string(filter.Or)},
	},
})

var changeInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ChangeInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"field": {Type: graphql.NewNonNull(graphql.String)},
		"value": {Type: value},
	},
})

// inputTypes are the shared input types of a schema. The operator enum
// values follow the naming convention, so they are built per schema.
type inputTypes struct {
	operatorEnum *graphql.Enum
	filterInput  *graphql.InputObject
}

func buildInputTypes(naming config.NamingConvention) *inputTypes {
	values := graphql.EnumValueConfigMap{}
	for _, op := range filter.Operators() {
		values[naming.ToGraphQLEnumValue(string(op))] = &graphql.EnumValueConfig{
			Value:       string(op),
			Description: op.Label(),
		}
	}
	operatorEnum := graphql.NewEnum(graphql.EnumConfig{
		Name:   "Operator",
		Values: values,
	})

	return &inputTypes{
		operatorEnum: operatorEnum,
		filterInput: graphql.NewInputObject(graphql.InputObjectConfig{
			Name: "FilterInput",
			Fields: graphql.InputObjectConfigFieldMap{
				"field":     {Type: graphql.NewNonNull(graphql.String)},
				"operator":  {Type: graphql.NewNonNull(operatorEnum)},
				"value":     {Type: value},
				"connector": {Type: connectorEnum},
			},
		}),
	}
}
