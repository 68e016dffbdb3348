package objectsink

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/user/objectstorage/pkg/compression"
	"github.com/xitongsys/parquet-go/parquet"
)

// Parameter names accepted by NewSink.
const (
	ParamObjectName           = "objectName"
	ParamStorageFormat        = "storageFormat"
	ParamBytesPerObject       = "bytesPerObject"
	ParamTuplesPerObject      = "tuplesPerObject"
	ParamTimePerObject        = "timePerObject"
	ParamCloseOnPunct         = "closeOnPunct"
	ParamParquetCompression   = "parquetCompression"
	ParamParquetWriterVersion = "parquetWriterVersion"
	ParamParquetPageSize      = "parquetPageSize"
	ParamParquetBlockSize     = "parquetBlockSize"
	ParamHeaderRow            = "headerRow"
	ParamEncoding             = "encoding"
	ParamCompression          = "compression"
)

type Format string

const (
	FormatRaw     Format = "raw"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// Params is the validated operator configuration.
type Params struct {
	ObjectName      string
	StorageFormat   Format
	BytesPerObject  int64
	TuplesPerObject int64
	TimePerObject   time.Duration
	CloseOnPunct    bool

	ParquetCompression   string
	ParquetWriterVersion string
	ParquetPageSize      int64
	ParquetBlockSize     int64

	HeaderRow   bool
	Encoding    string
	Compression compression.Algorithm
}

var parquetCodecs = map[string]parquet.CompressionCodec{
	"UNCOMPRESSED": parquet.CompressionCodec_UNCOMPRESSED,
	"SNAPPY":       parquet.CompressionCodec_SNAPPY,
	"GZIP":         parquet.CompressionCodec_GZIP,
	"LZ4":          parquet.CompressionCodec_LZ4,
	"ZSTD":         parquet.CompressionCodec_ZSTD,
	// LZO pages are written uncompressed and the whole object is LZO1X encoded
	"LZO": parquet.CompressionCodec_UNCOMPRESSED,
}

func defaultParams() Params {
	return Params{
		StorageFormat:        FormatRaw,
		CloseOnPunct:         true,
		ParquetCompression:   "SNAPPY",
		ParquetWriterVersion: "v1",
		ParquetPageSize:      8 * 1024,
		ParquetBlockSize:     128 * 1024 * 1024,
		Encoding:             "UTF-8",
		Compression:          compression.None,
	}
}

// ParseParams validates an option map. Values may be strings or native
// Go numbers and booleans.
func ParseParams(raw map[string]any) (Params, error) {
	p := defaultParams()

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var compressionSet bool
	for _, k := range keys {
		v := raw[k]
		var err error
		switch k {
		case ParamObjectName:
			p.ObjectName, err = asString(v)
		case ParamStorageFormat:
			var s string
			s, err = asString(v)
			p.StorageFormat = Format(strings.ToLower(s))
		case ParamBytesPerObject:
			p.BytesPerObject, err = asInt64(v)
		case ParamTuplesPerObject:
			p.TuplesPerObject, err = asInt64(v)
		case ParamTimePerObject:
			var secs float64
			secs, err = asFloat64(v)
			p.TimePerObject = time.Duration(secs * float64(time.Second))
		case ParamCloseOnPunct:
			p.CloseOnPunct, err = asBool(v)
		case ParamParquetCompression:
			var s string
			s, err = asString(v)
			p.ParquetCompression = strings.ToUpper(s)
		case ParamParquetWriterVersion:
			var s string
			s, err = asString(v)
			p.ParquetWriterVersion = strings.ToLower(s)
		case ParamParquetPageSize:
			p.ParquetPageSize, err = asInt64(v)
		case ParamParquetBlockSize:
			p.ParquetBlockSize, err = asInt64(v)
		case ParamHeaderRow:
			p.HeaderRow, err = asBool(v)
		case ParamEncoding:
			p.Encoding, err = asString(v)
		case ParamCompression:
			var s string
			if s, err = asString(v); err == nil {
				p.Compression, err = compression.ParseAlgorithm(s)
				compressionSet = true
			}
		default:
			return Params{}, fmt.Errorf("unknown parameter %q", k)
		}
		if err != nil {
			return Params{}, fmt.Errorf("parameter %s: %w", k, err)
		}
	}

	if err := p.validate(compressionSet); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p *Params) validate(compressionSet bool) error {
	if p.ObjectName == "" {
		return fmt.Errorf("parameter %s is required", ParamObjectName)
	}

	switch p.StorageFormat {
	case FormatRaw, FormatJSON:
	case FormatParquet:
		if _, ok := parquetCodecs[p.ParquetCompression]; !ok {
			return fmt.Errorf("parameter %s: unsupported codec %q", ParamParquetCompression, p.ParquetCompression)
		}
		if compressionSet {
			return fmt.Errorf("parameter %s does not apply to parquet, use %s", ParamCompression, ParamParquetCompression)
		}
		if p.ParquetCompression == "LZO" {
			p.Compression = compression.LZO
		}
		if p.ParquetWriterVersion != "v1" && p.ParquetWriterVersion != "v2" {
			return fmt.Errorf("parameter %s: expected v1 or v2, got %q", ParamParquetWriterVersion, p.ParquetWriterVersion)
		}
		if p.ParquetPageSize <= 0 || p.ParquetBlockSize <= 0 {
			return fmt.Errorf("parquet page and block sizes must be positive")
		}
	default:
		return fmt.Errorf("parameter %s: unsupported format %q", ParamStorageFormat, p.StorageFormat)
	}

	if !strings.EqualFold(strings.ReplaceAll(p.Encoding, "-", ""), "UTF8") {
		return fmt.Errorf("parameter %s: only UTF-8 is supported, got %q", ParamEncoding, p.Encoding)
	}

	if p.BytesPerObject < 0 || p.TuplesPerObject < 0 || p.TimePerObject < 0 {
		return fmt.Errorf("rolling policy values cannot be negative")
	}
	policies := 0
	for _, set := range []bool{p.BytesPerObject > 0, p.TuplesPerObject > 0, p.TimePerObject > 0} {
		if set {
			policies++
		}
	}
	if policies > 1 {
		return fmt.Errorf("only one of %s, %s and %s may be set", ParamBytesPerObject, ParamTuplesPerObject, ParamTimePerObject)
	}
	return nil
}

func asString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func asInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("expected integer, got %v", x)
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func asFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	n, err := asInt64(v)
	return float64(n), err
}

func asBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	}
	return false, fmt.Errorf("expected boolean, got %T", v)
}
