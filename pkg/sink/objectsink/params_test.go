package objectsink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/objectstorage/pkg/compression"
)

func TestParseParamsDefaults(t *testing.T) {
	p, err := ParseParams(map[string]any{ParamObjectName: "out%OBJECTNUM.csv"})
	require.NoError(t, err)

	assert.Equal(t, FormatRaw, p.StorageFormat)
	assert.True(t, p.CloseOnPunct)
	assert.Equal(t, "SNAPPY", p.ParquetCompression)
	assert.Equal(t, "v1", p.ParquetWriterVersion)
	assert.Equal(t, compression.None, p.Compression)
	assert.Zero(t, p.BytesPerObject)
}

func TestParseParamsParquetLZO(t *testing.T) {
	p, err := ParseParams(map[string]any{
		ParamObjectName:           "cosTest%OBJECTNUM.parquet.lzo",
		ParamStorageFormat:        "parquet",
		ParamBytesPerObject:       1048576,
		ParamParquetCompression:   "LZO",
		ParamParquetWriterVersion: "v1",
	})
	require.NoError(t, err)

	assert.Equal(t, FormatParquet, p.StorageFormat)
	assert.Equal(t, int64(1048576), p.BytesPerObject)
	assert.Equal(t, compression.LZO, p.Compression)
}

func TestParseParamsStringValues(t *testing.T) {
	p, err := ParseParams(map[string]any{
		ParamObjectName:    "o%OBJECTNUM",
		ParamTimePerObject: "1.5",
		ParamCloseOnPunct:  "false",
		ParamHeaderRow:     "true",
		ParamCompression:   "gzip",
	})
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, p.TimePerObject)
	assert.False(t, p.CloseOnPunct)
	assert.True(t, p.HeaderRow)
	assert.Equal(t, compression.Gzip, p.Compression)
}

func TestParseParamsErrors(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"missing object name", map[string]any{}},
		{"unknown key", map[string]any{ParamObjectName: "o", "bytesPerFile": 10}},
		{"two policies", map[string]any{ParamObjectName: "o", ParamBytesPerObject: 10, ParamTuplesPerObject: 5}},
		{"negative size", map[string]any{ParamObjectName: "o", ParamBytesPerObject: -1}},
		{"bad format", map[string]any{ParamObjectName: "o", ParamStorageFormat: "avro"}},
		{"bad codec", map[string]any{ParamObjectName: "o", ParamStorageFormat: "parquet", ParamParquetCompression: "BROTLI"}},
		{"bad writer version", map[string]any{ParamObjectName: "o", ParamStorageFormat: "parquet", ParamParquetWriterVersion: "v3"}},
		{"object codec on parquet", map[string]any{ParamObjectName: "o", ParamStorageFormat: "parquet", ParamCompression: "gzip"}},
		{"bad encoding", map[string]any{ParamObjectName: "o", ParamEncoding: "ISO-8859-1"}},
		{"fractional count", map[string]any{ParamObjectName: "o", ParamTuplesPerObject: 2.5}},
		{"wrong type", map[string]any{ParamObjectName: 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParams(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestObjectName(t *testing.T) {
	opened := time.Date(2017, 6, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "/cosTest0.parquet.lzo", ObjectName("cosTest%OBJECTNUM.parquet.lzo", 0, opened))
	assert.Equal(t, "/dir/obj12", ObjectName("/dir/obj%OBJECTNUM", 12, opened))
	assert.Equal(t, "/at-20170615T100000Z", ObjectName("at-%TIME", 0, opened))
	assert.NotContains(t, ObjectName("%HOST-%PROCESSID", 0, opened), "%")
}
