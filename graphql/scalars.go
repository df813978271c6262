package graphql

import (
	"encoding"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

var timestamp = newStringScalar(
	"Timestamp", "The `Timestamp` scalar type represents a DateTime."+
		" The Timestamp is serialized as an RFC 3339 quoted string",
	serializeTimestamp, deserializeTimestamp)

// value holds any attribute value: strings, numbers, booleans and lists of them.
var value = graphql.NewScalar(graphql.ScalarConfig{
	Name: "Value",
	Description: "The `Value` scalar type represents a record attribute value:" +
		" a string, a number, a boolean or a list of them.",
	Serialize:    serializeValue,
	ParseValue:   identityFn,
	ParseLiteral: parseValueLiteral,
})

// newStringScalar creates a string-based scalar with custom serialization functions
func newStringScalar(
	name string, description string, serializeFn graphql.SerializeFn, deserializeFn graphql.ParseValueFn,
) *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:         name,
		Description:  description,
		Serialize:    serializeFn,
		ParseValue:   deserializeFn,
		ParseLiteral: parseLiteralFromStringHandler(deserializeFn),
	})
}

func identityFn(value interface{}) interface{} {
	return value
}

func parseLiteralFromStringHandler(parser graphql.ParseValueFn) graphql.ParseLiteralFn {
	return func(valueAST ast.Value) interface{} {
		switch valueAST := valueAST.(type) {
		case *ast.StringValue:
			return parser(valueAST.Value)
		}
		return nil
	}
}

func parseValueLiteral(valueAST ast.Value) interface{} {
	switch valueAST := valueAST.(type) {
	case *ast.StringValue:
		return valueAST.Value
	case *ast.BooleanValue:
		return valueAST.Value
	case *ast.IntValue:
		if i, err := strconv.ParseInt(valueAST.Value, 10, 64); err == nil {
			return float64(i)
		}
	case *ast.FloatValue:
		if f, err := strconv.ParseFloat(valueAST.Value, 64); err == nil {
			return f
		}
	case *ast.EnumValue:
		return valueAST.Value
	case *ast.ListValue:
		list := make([]interface{}, 0, len(valueAST.Values))
		for _, item := range valueAST.Values {
			list = append(list, parseValueLiteral(item))
		}
		return list
	}
	return nil
}

var deserializeTimestamp = deserializeFromUnmarshaler(func() encoding.TextUnmarshaler {
	return &time.Time{}
})

func deserializeFromUnmarshaler(factory func() encoding.TextUnmarshaler) graphql.ParseValueFn {
	var fn func(value interface{}) interface{}

	fn = func(value interface{}) interface{} {
		switch value := value.(type) {
		case []byte:
			t := factory()
			err := t.UnmarshalText(value)
			if err != nil {
				return nil
			}

			return t
		case string:
			return fn([]byte(value))
		case *string:
			if value == nil {
				return nil
			}
			return fn([]byte(*value))
		default:
			return value
		}
	}

	return fn
}

func serializeTimestamp(value interface{}) interface{} {
	switch value := value.(type) {
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	case *time.Time:
		if value == nil {
			return nil
		}
		return serializeTimestamp(*value)
	default:
		return value
	}
}

func serializeValue(value interface{}) interface{} {
	switch value := value.(type) {
	case time.Time, *time.Time:
		return serializeTimestamp(value)
	case []interface{}:
		list := make([]interface{}, len(value))
		for i, item := range value {
			list[i] = serializeValue(item)
		}
		return list
	default:
		return value
	}
}
