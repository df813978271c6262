package types

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"
)

type fromJsonFn func(value interface{}) (interface{}, error)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Layouts accepted when a date is provided as text.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ToNumber coerces a value following the rules of a JavaScript Number() call.
// The boolean result is false whenever the coercion yields NaN or an infinity;
// comparisons against such values never hold.
func ToNumber(value interface{}) (*inf.Dec, bool) {
	switch v := value.(type) {
	case nil:
		return new(inf.Dec), true
	case bool:
		if v {
			return inf.NewDec(1, 0), true
		}
		return new(inf.Dec), true
	case int:
		return inf.NewDec(int64(v), 0), true
	case int8:
		return inf.NewDec(int64(v), 0), true
	case int16:
		return inf.NewDec(int64(v), 0), true
	case int32:
		return inf.NewDec(int64(v), 0), true
	case int64:
		return inf.NewDec(v, 0), true
	case uint:
		return new(inf.Dec).SetUnscaledBig(new(big.Int).SetUint64(uint64(v))), true
	case uint8:
		return inf.NewDec(int64(v), 0), true
	case uint16:
		return inf.NewDec(int64(v), 0), true
	case uint32:
		return inf.NewDec(int64(v), 0), true
	case uint64:
		return new(inf.Dec).SetUnscaledBig(new(big.Int).SetUint64(v)), true
	case float32:
		return floatToDecimal(float64(v))
	case float64:
		return floatToDecimal(v)
	case *inf.Dec:
		if v == nil {
			return new(inf.Dec), true
		}
		return new(inf.Dec).Set(v), true
	case *big.Int:
		if v == nil {
			return new(inf.Dec), true
		}
		return new(inf.Dec).SetUnscaledBig(v), true
	case time.Time:
		return inf.NewDec(v.UnixNano()/int64(time.Millisecond), 0), true
	case *time.Time:
		if v == nil {
			return new(inf.Dec), true
		}
		return ToNumber(*v)
	case string:
		return stringToDecimal(v)
	case []interface{}:
		switch len(v) {
		case 0:
			return new(inf.Dec), true
		case 1:
			return stringToDecimal(ToString(v[0]))
		}
		return nil, false
	case []string:
		switch len(v) {
		case 0:
			return new(inf.Dec), true
		case 1:
			return stringToDecimal(v[0])
		}
		return nil, false
	case fmt.Stringer:
		return stringToDecimal(v.String())
	}
	return nil, false
}

func floatToDecimal(f float64) (*inf.Dec, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return stringToDecimal(strconv.FormatFloat(f, 'f', -1, 64))
}

func stringToDecimal(s string) (*inf.Dec, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(inf.Dec), true
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			i, ok := new(big.Int).SetString(s[2:], base)
			if !ok || strings.Contains(s, "_") {
				return nil, false
			}
			return new(inf.Dec).SetUnscaledBig(i), true
		}
	}

	if !decimalPattern.MatchString(s) {
		return nil, false
	}

	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) {
			return nil, false
		}
		return floatToDecimal(f)
	}

	s = strings.TrimPrefix(s, "+")
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	} else if strings.HasPrefix(s, "-.") {
		s = "-0" + s[1:]
	}

	d, ok := new(inf.Dec).SetString(s)
	return d, ok
}

// CompareNumbers coerces both values with ToNumber and compares them. The
// boolean result is false when either side is not a number.
func CompareNumbers(a, b interface{}) (int, bool) {
	x, ok := ToNumber(a)
	if !ok {
		return 0, false
	}
	y, ok := ToNumber(b)
	if !ok {
		return 0, false
	}
	return x.Cmp(y), true
}

// ToString coerces a value to its textual form, following JavaScript String()
// except that a nil value becomes the empty string.
func ToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case *inf.Dec:
		if v == nil {
			return ""
		}
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(time.RFC3339)
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = ToString(item)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	case map[string]interface{}, Record:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

// IsEmpty reports whether a value is falsy or an empty collection. Numeric
// zero is empty, while the string "0" is not.
func IsEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float32:
		return v == 0 || math.IsNaN(float64(v))
	case float64:
		return v == 0 || math.IsNaN(v)
	case *inf.Dec:
		return v == nil || v.Sign() == 0
	case *big.Int:
		return v == nil || v.Sign() == 0
	case *time.Time:
		return v == nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsNumeric reports whether the value holds a number of any Go kind.
func IsNumeric(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, *inf.Dec, *big.Int:
		return true
	}
	return false
}

// StrictEquals compares two values without cross-type coercion. Numbers are
// equal when their values are, whatever their Go kind.
func StrictEquals(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if IsNumeric(a) && IsNumeric(b) {
		c, ok := CompareNumbers(a, b)
		return ok && c == 0
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}

	return reflect.DeepEqual(a, b)
}

// ToTime converts a time value or a date string.
func ToTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// NormalizeValue converts driver specific values into the plain representation
// used by records.
func NormalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case gocql.UUID:
		return v.String()
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case *string:
		if v == nil {
			return nil
		}
		return *v
	case *time.Time:
		if v == nil {
			return nil
		}
		return *v
	case float32:
		return float64(v)
	case *inf.Dec:
		if v == nil {
			return nil
		}
		f, _ := strconv.ParseFloat(v.String(), 64)
		return f
	}
	return value
}

// NormalizeRow builds a record out of a row scanned from a database.
func NormalizeRow(row map[string]interface{}) Record {
	record := make(Record, len(row))
	for k, v := range row {
		record[k] = NormalizeValue(v)
	}
	return record
}

func unmarshallerToText(factory func() encoding.TextUnmarshaler) fromJsonFn {
	return func(value interface{}) (interface{}, error) {
		switch value := value.(type) {
		case string:
			t := factory()
			err := t.UnmarshalText([]byte(value))
			if err != nil {
				return nil, err
			}

			return t, nil
		default:
			return value, nil
		}
	}
}

// StringToDecimal parses a decimal sent as text.
var StringToDecimal = unmarshallerToText(func() encoding.TextUnmarshaler {
	return &inf.Dec{}
})

// StringToTime converts a date field value sent as text into a time value.
func StringToTime(value interface{}) (interface{}, error) {
	switch value.(type) {
	case nil, time.Time:
		return value, nil
	}
	if t, ok := ToTime(value); ok {
		return t, nil
	}
	return nil, fmt.Errorf("invalid date value %v", value)
}
