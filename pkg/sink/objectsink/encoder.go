package objectsink

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/user/objectstorage"
	jsonformatter "github.com/user/objectstorage/pkg/formatter/json"
	"github.com/user/objectstorage/pkg/schema"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/writer"
)

// encoder builds one object in memory.
type encoder interface {
	Encode(t objectstorage.Tuple) error
	// Written is the running size of the object, pending data included.
	Written() int64
	// Finish finalizes the object and returns its bytes.
	Finish() ([]byte, error)
}

func newEncoder(p Params, s *schema.Schema) (encoder, error) {
	switch p.StorageFormat {
	case FormatParquet:
		return newParquetEncoder(p, s)
	case FormatJSON:
		return &jsonEncoder{formatter: jsonformatter.NewJSONFormatter()}, nil
	default:
		return newRawEncoder(p, s)
	}
}

type parquetEncoder struct {
	buf       bytes.Buffer
	pw        *writer.JSONWriter
	formatter objectstorage.Formatter
}

func newParquetEncoder(p Params, s *schema.Schema) (*parquetEncoder, error) {
	jsonSchema, err := s.ParquetSchema("")
	if err != nil {
		return nil, err
	}

	e := &parquetEncoder{formatter: jsonformatter.NewJSONFormatter()}
	pw, err := writer.NewJSONWriter(jsonSchema, writerfile.NewWriterFile(&e.buf), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquetCodecs[p.ParquetCompression]
	pw.PageSize = p.ParquetPageSize
	pw.RowGroupSize = p.ParquetBlockSize
	if p.ParquetWriterVersion == "v2" {
		pw.Footer.Version = 2
	}
	e.pw = pw
	return e, nil
}

func (e *parquetEncoder) Encode(t objectstorage.Tuple) error {
	row, err := e.formatter.Format(t)
	if err != nil {
		return err
	}
	if err := e.pw.Write(string(row)); err != nil {
		return fmt.Errorf("failed to write tuple to parquet: %w", err)
	}
	return nil
}

// Written adds the flushed bytes, the encoded pages not yet flushed and the
// estimated size of rows not yet encoded.
func (e *parquetEncoder) Written() int64 {
	return e.pw.Offset + e.pw.Size + e.pw.ObjsSize
}

func (e *parquetEncoder) Finish() ([]byte, error) {
	if err := e.pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to stop parquet writer: %w", err)
	}
	return e.buf.Bytes(), nil
}

// rawEncoder writes delimited text, one record per tuple.
type rawEncoder struct {
	buf bytes.Buffer
	w   *csv.Writer
}

func newRawEncoder(p Params, s *schema.Schema) (*rawEncoder, error) {
	e := &rawEncoder{}
	e.w = csv.NewWriter(&e.buf)
	if p.HeaderRow {
		if err := e.w.Write(s.Names()); err != nil {
			return nil, err
		}
		e.w.Flush()
	}
	return e, nil
}

func (e *rawEncoder) Encode(t objectstorage.Tuple) error {
	values := t.Values()
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = formatValue(v)
	}
	if err := e.w.Write(record); err != nil {
		return err
	}
	e.w.Flush()
	return e.w.Error()
}

func (e *rawEncoder) Written() int64 { return int64(e.buf.Len()) }

func (e *rawEncoder) Finish() ([]byte, error) {
	e.w.Flush()
	return e.buf.Bytes(), e.w.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// jsonEncoder writes JSON lines.
type jsonEncoder struct {
	buf       bytes.Buffer
	formatter objectstorage.Formatter
}

func (e *jsonEncoder) Encode(t objectstorage.Tuple) error {
	line, err := e.formatter.Format(t)
	if err != nil {
		return err
	}
	e.buf.Write(line)
	e.buf.WriteByte('\n')
	return nil
}

func (e *jsonEncoder) Written() int64 { return int64(e.buf.Len()) }

func (e *jsonEncoder) Finish() ([]byte, error) { return e.buf.Bytes(), nil }
