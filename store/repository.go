// Package store holds the entity collections behind the API: record
// repositories over memory, Cassandra or SQL, the catalog of entities, seed
// loading and rule persistence.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrUnknownField   = errors.New("unknown field")
	ErrReadOnlyField  = errors.New("read only field")
	ErrInvalidValue   = errors.New("invalid field value")
)

// Query selects records from a repository. Matching runs first, then
// ordering, then paging.
type Query struct {
	Search  string
	Rules   []filter.Rule
	OrderBy []filter.Order
	Limit   int
	Offset  int
}

type Repository interface {
	// List returns the records matching the query. Count is the number of
	// matches before paging.
	List(ctx context.Context, query Query) (*types.QueryResult, error)
	Get(ctx context.Context, id string) (types.Record, error)
	// Update merges the patch into the record and returns the result.
	Update(ctx context.Context, id string, patch types.Record) (types.Record, error)
}

// Loader is implemented by repositories that can be filled from seed records.
// Records whose id already exists are left untouched.
type Loader interface {
	Load(ctx context.Context, records []types.Record) error
}

func runQuery(records []types.Record, query Query, recordFilter *filter.RecordFilter) *types.QueryResult {
	matched := recordFilter.Filter(records, query.Search, query.Rules)
	if len(query.OrderBy) > 0 {
		matched = filter.Sort(matched, query.OrderBy...)
	}

	count := len(matched)
	start := query.Offset
	if start > count {
		start = count
	}
	if start < 0 {
		start = 0
	}
	end := count
	if query.Limit > 0 && query.Limit < end-start {
		end = start + query.Limit
	}

	return &types.QueryResult{
		Values: types.CloneRecords(matched[start:end]),
		Count:  count,
	}
}

// preparePatch checks the patch against the registry and converts values to
// the declared field types.
func preparePatch(registry *filter.Registry, id string, patch types.Record) (types.Record, error) {
	prepared := make(types.Record, len(patch))
	for name, value := range patch {
		if name == types.IDField {
			if value != nil && types.ToString(value) == id {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, name)
		}
		field, ok := registry.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		converted, err := convertValue(field, value)
		if err != nil {
			return nil, err
		}
		prepared[name] = converted
	}
	return prepared, nil
}

func convertValue(field filter.Field, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	invalid := fmt.Errorf("%w: %v is not a valid %s value for %s", ErrInvalidValue, value, field.Type, field.Name)
	switch field.Type {
	case filter.TypeNumber:
		s, isString := value.(string)
		if !types.IsNumeric(value) && (!isString || strings.TrimSpace(s) == "") {
			return nil, invalid
		}
		n, ok := types.ToNumber(value)
		if !ok {
			return nil, invalid
		}
		return types.NormalizeValue(n), nil
	case filter.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return nil, invalid
		}
	case filter.TypeDate:
		t, err := types.StringToTime(value)
		if err != nil {
			return nil, invalid
		}
		return t, nil
	case filter.TypeList:
		switch v := value.(type) {
		case []interface{}:
			return append([]interface{}(nil), v...), nil
		case []string:
			list := make([]interface{}, len(v))
			for i, s := range v {
				list[i] = s
			}
			return list, nil
		}
		return nil, invalid
	case filter.TypeText:
		if _, ok := value.(string); !ok {
			return types.ToString(value), nil
		}
	}
	return value, nil
}

// normalizeRecord converts stored values to the declared field types. Values
// that can't be converted are kept as they are.
func normalizeRecord(registry *filter.Registry, record types.Record) types.Record {
	normalized := make(types.Record, len(record))
	for name, value := range record {
		value = types.NormalizeValue(value)
		if field, ok := registry.Lookup(name); ok && value != nil {
			switch field.Type {
			case filter.TypeDate:
				if _, isTime := value.(time.Time); !isTime {
					if t, ok := types.ToTime(value); ok {
						value = t
					}
				}
			case filter.TypeList:
				if list, ok := value.([]string); ok {
					converted := make([]interface{}, len(list))
					for i, s := range list {
						converted[i] = s
					}
					value = converted
				}
			}
		}
		normalized[name] = value
	}
	if id, ok := normalized[types.IDField]; ok && id != nil {
		normalized[types.IDField] = types.ToString(id)
	}
	return normalized
}
