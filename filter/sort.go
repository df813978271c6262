package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/crmkit/crm-data-apis/types"
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

func (d Direction) IsValid() bool {
	return d == "" || d == Asc || d == Desc
}

// Order sorts records by one field.
type Order struct {
	Field     string    `json:"field" yaml:"field" mapstructure:"field"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty" mapstructure:"direction"`
}

// Sort returns a stably sorted copy of the records. Records missing a value
// for a field come last whatever the direction.
func Sort(records []types.Record, orders ...Order) []types.Record {
	result := make([]types.Record, len(records))
	copy(result, records)
	if len(orders) == 0 {
		return result
	}

	sort.SliceStable(result, func(i, j int) bool {
		for _, o := range orders {
			c := compareField(result[i][o.Field], result[j][o.Field], o.Direction)
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	return result
}

func compareField(a, b interface{}, direction Direction) int {
	aMissing, bMissing := a == nil, b == nil
	switch {
	case aMissing && bMissing:
		return 0
	case aMissing:
		return 1
	case bMissing:
		return -1
	}

	c := compareValues(a, b)
	if direction == Desc {
		return -c
	}
	return c
}

func compareValues(a, b interface{}) int {
	if types.IsNumeric(a) && types.IsNumeric(b) {
		if c, ok := types.CompareNumbers(a, b); ok {
			return c
		}
	}

	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}

	if x, ok := asTime(a); ok {
		if y, ok := asTime(b); ok {
			switch {
			case x.Before(y):
				return -1
			case x.After(y):
				return 1
			}
			return 0
		}
	}

	return strings.Compare(strings.ToLower(types.ToString(a)), strings.ToLower(types.ToString(b)))
}

func asTime(value interface{}) (time.Time, bool) {
	switch value.(type) {
	case time.Time, *time.Time:
		return types.ToTime(value)
	}
	return time.Time{}, false
}
