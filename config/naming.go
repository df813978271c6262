package config

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// NamingConvention maps entity and field names onto GraphQL names.
type NamingConvention interface {
	ToGraphQLField(name string) string
	ToGraphQLFieldPrefix(prefix string, name string) string
	ToGraphQLType(name string) string
	ToGraphQLEnumValue(name string) string

	// ToRecordField maps a GraphQL field back onto the record attribute it was built from.
	ToRecordField(entity string, name string) string
}

// NamingConventionFn builds a naming convention out of the record
// attributes of every entity.
type NamingConventionFn func(fields map[string][]string) NamingConvention

type defaultNaming struct {
	fields map[string]map[string]string
}

// NewDefaultNaming creates a naming convention. Fields are the record
// attributes of each entity; they are needed to map GraphQL fields back to
// attributes that are not snake_case.
func NewDefaultNaming(fields map[string][]string) NamingConvention {
	n := &defaultNaming{fields: make(map[string]map[string]string, len(fields))}
	for entity, names := range fields {
		reverse := make(map[string]string, len(names))
		for _, name := range names {
			graphQLName := n.ToGraphQLField(name)
			if _, ok := reverse[graphQLName]; !ok {
				reverse[graphQLName] = name
			}
		}
		n.fields[entity] = reverse
	}
	return n
}

func (n *defaultNaming) ToGraphQLField(name string) string {
	return strcase.ToLowerCamel(name)
}

func (n *defaultNaming) ToGraphQLFieldPrefix(prefix string, name string) string {
	return strcase.ToLowerCamel(prefix) + strcase.ToCamel(name)
}

func (n *defaultNaming) ToGraphQLType(name string) string {
	return strcase.ToCamel(name)
}

func (n *defaultNaming) ToGraphQLEnumValue(name string) string {
	return strings.ToUpper(strcase.ToSnake(name))
}

func (n *defaultNaming) ToRecordField(entity string, name string) string {
	if reverse, ok := n.fields[entity]; ok {
		if field, ok := reverse[name]; ok {
			return field
		}
	}
	return strcase.ToSnake(name)
}
