package schema

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const injectionDecl = "tuple<rstring tsStr, rstring customerId, float64 latitude, float64 longitude, timestamp ts>"

func TestParse(t *testing.T) {
	s, err := Parse(injectionDecl)
	require.NoError(t, err)

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, []string{"tsStr", "customerId", "latitude", "longitude", "ts"}, s.Names())
	assert.Equal(t, injectionDecl, s.String())

	i, ok := s.Index("latitude")
	require.True(t, ok)
	assert.Equal(t, 2, i)

	again, err := Parse(s.String())
	require.NoError(t, err)
	assert.True(t, s.Equal(again))
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"no wrapper":     "rstring a, int32 b",
		"empty":          "tuple<>",
		"unknown type":   "tuple<rstring a, list<int32> b>",
		"missing name":   "tuple<rstring>",
		"duplicate name": "tuple<rstring a, int32 a>",
	}
	for name, decl := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(decl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDeclaration), "got %v", err)
		})
	}
}

func TestCoerce(t *testing.T) {
	s := MustParse(injectionDecl)

	values, err := s.Coerce([]string{"2017-06-15 10:00:00", "customer_0001", "40.7128", "-74.006", "(1497520800,500000000,0)"})
	require.NoError(t, err)
	require.Len(t, values, 5)

	assert.Equal(t, "2017-06-15 10:00:00", values[0])
	assert.Equal(t, "customer_0001", values[1])
	assert.InDelta(t, 40.7128, values[2], 1e-9)
	assert.InDelta(t, -74.006, values[3], 1e-9)
	assert.Equal(t, time.Unix(1497520800, 500000000).UTC(), values[4])
	assert.NoError(t, s.Validate(values))
}

func TestCoerceSchemaMismatch(t *testing.T) {
	s := MustParse("tuple<rstring tsStr, rstring customerId, float64 latitude, float64 longitude>")

	_, err := s.Coerce([]string{"a", "b", "1.0", "2.0", "2017-06-15T10:00:00Z"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	_, err = s.Coerce([]string{"a", "b", "north", "2.0"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "latitude")
}

func TestIntegerRanges(t *testing.T) {
	v, err := Int8.Parse("-128")
	require.NoError(t, err)
	assert.Equal(t, int8(-128), v)

	_, err = Int8.Parse("128")
	assert.Error(t, err)

	v, err = UInt64.Parse("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), v)

	_, err = UInt16.Parse("-1")
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2017, 6, 15, 10, 0, 0, 250000000, time.UTC)

	for _, raw := range []string{
		"2017-06-15T10:00:00.25Z",
		"2017-06-15 10:00:00.25",
		"(1497520800,250000000,0)",
		"1497520800.25",
	} {
		got, err := ParseTimestamp(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), "%s parsed to %s", raw, got)
	}

	_, err := ParseTimestamp("(1497520800,2000000000,0)")
	assert.Error(t, err)
	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestParquetSchema(t *testing.T) {
	s := MustParse("tuple<rstring name, uint64 size, timestamp ts, boolean ok, int8 small>")

	raw, err := s.ParquetSchema("")
	require.NoError(t, err)

	var root struct {
		Tag    string
		Fields []struct{ Tag string }
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &root))

	assert.Equal(t, "name=parquet_go_root, repetitiontype=REQUIRED", root.Tag)
	require.Len(t, root.Fields, 5)
	assert.Equal(t, "name=name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=REQUIRED", root.Fields[0].Tag)
	assert.Equal(t, "name=size, type=INT64, convertedtype=UINT_64, repetitiontype=REQUIRED", root.Fields[1].Tag)
	assert.Equal(t, "name=ts, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=REQUIRED", root.Fields[2].Tag)
	assert.Equal(t, "name=ok, type=BOOLEAN, repetitiontype=REQUIRED", root.Fields[3].Tag)
	assert.Equal(t, "name=small, type=INT32, convertedtype=INT_8, repetitiontype=REQUIRED", root.Fields[4].Tag)
}
