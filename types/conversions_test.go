package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/inf.v0"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
		ok    bool
	}{
		{"nil is zero", nil, "0", true},
		{"true is one", true, "1", true},
		{"int", 85, "85", true},
		{"int64", int64(-7), "-7", true},
		{"uint64", uint64(math.MaxUint64), "18446744073709551615", true},
		{"float", 40.5, "40.5", true},
		{"decimal string", "50", "50", true},
		{"padded string", "  12.25 ", "12.25", true},
		{"empty string", "", "0", true},
		{"leading dot", ".5", "0.5", true},
		{"trailing dot", "5.", "5", true},
		{"explicit sign", "+3", "3", true},
		{"exponent", "1e3", "1000", true},
		{"hex", "0x1A", "26", true},
		{"binary", "0b101", "5", true},
		{"single element list", []interface{}{"42"}, "42", true},
		{"empty list", []interface{}{}, "0", true},
		{"word", "abc", "", false},
		{"mixed", "12abc", "", false},
		{"infinity", "Infinity", "", false},
		{"nan float", math.NaN(), "", false},
		{"two element list", []interface{}{1, 2}, "", false},
		{"map", map[string]interface{}{"a": 1}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToNumber(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				want, _ := new(inf.Dec).SetString(tt.want)
				assert.Equal(t, 0, got.Cmp(want), "got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToNumberDate(t *testing.T) {
	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	got, ok := ToNumber(date)
	assert.True(t, ok)
	assert.Equal(t, inf.NewDec(1577836800000, 0), got)
}

func TestCompareNumbers(t *testing.T) {
	c, ok := CompareNumbers(85, "50")
	assert.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = CompareNumbers("0.1", 0.10)
	assert.True(t, ok)
	assert.Equal(t, 0, c)

	_, ok = CompareNumbers("n/a", 50)
	assert.False(t, ok)
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "85", ToString(85))
	assert.Equal(t, "85", ToString(float64(85)))
	assert.Equal(t, "1.5", ToString(1.5))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "vip,hot", ToString([]interface{}{"vip", "hot"}))
	assert.Equal(t, "a,b", ToString([]string{"a", "b"}))
	assert.Equal(t, "NaN", ToString(math.NaN()))
	assert.Equal(t, "2021-03-04T00:00:00Z", ToString(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "12.50", ToString(inf.NewDec(1250, 2)))
}

func TestIsEmpty(t *testing.T) {
	empty := []interface{}{nil, "", []interface{}{}, 0, 0.0, int64(0), false, math.NaN(), map[string]interface{}{}}
	for _, value := range empty {
		assert.True(t, IsEmpty(value), "%#v should be empty", value)
	}

	notEmpty := []interface{}{"x", " ", "0", 1, -2.5, true, []interface{}{0}, map[string]interface{}{"a": nil}}
	for _, value := range notEmpty {
		assert.False(t, IsEmpty(value), "%#v should not be empty", value)
	}
}

func TestStrictEquals(t *testing.T) {
	assert.True(t, StrictEquals("new", "new"))
	assert.False(t, StrictEquals("new", "New"))
	assert.True(t, StrictEquals(85, float64(85)))
	assert.True(t, StrictEquals(int64(3), inf.NewDec(3, 0)))
	assert.False(t, StrictEquals("85", 85))
	assert.False(t, StrictEquals(true, 1))
	assert.True(t, StrictEquals(nil, nil))
	assert.False(t, StrictEquals(nil, ""))
	assert.False(t, StrictEquals(math.NaN(), math.NaN()))
	assert.True(t, StrictEquals([]interface{}{"a"}, []interface{}{"a"}))

	t1 := time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.True(t, StrictEquals(t1, t1.In(time.FixedZone("x", 3600))))
}

func TestToTime(t *testing.T) {
	got, ok := ToTime("2021-03-04")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), got)

	_, ok = ToTime("next week")
	assert.False(t, ok)

	value, err := StringToTime("2021-03-04T10:00:00Z")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC), value)

	_, err = StringToTime(42)
	assert.Error(t, err)
}

func TestRecordCloneAndMerge(t *testing.T) {
	original := Record{"id": "1", "tags": []interface{}{"vip"}}
	clone := original.Clone()
	clone["tags"].([]interface{})[0] = "changed"
	assert.Equal(t, "vip", original["tags"].([]interface{})[0])

	merged := original.Merge(Record{"status": "qualified"})
	assert.Equal(t, "qualified", merged["status"])
	assert.NotContains(t, original, "status")
	assert.Equal(t, "1", merged.ID())
}
