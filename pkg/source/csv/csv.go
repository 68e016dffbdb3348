package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/schema"
	"github.com/user/objectstorage/pkg/tuple"
)

// CSVSource implements the objectstorage.Source interface for delimited files.
// Every record is coerced to the declared schema.
type CSVSource struct {
	filePath  string
	delimiter rune
	hasHeader bool
	schema    *schema.Schema
	file      *os.File
	reader    *csv.Reader
	finished  bool
}

// NewCSVSource creates a new CSVSource.
func NewCSVSource(filePath string, delimiter rune, hasHeader bool, s *schema.Schema) *CSVSource {
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSVSource{
		filePath:  filePath,
		delimiter: delimiter,
		hasHeader: hasHeader,
		schema:    s,
	}
}

func newReader(r io.Reader, delimiter rune) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	// arity is checked against the schema, with a better error
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return reader
}

func (s *CSVSource) init() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to open csv file: %w", err)
	}
	s.file = file
	s.reader = newReader(file, s.delimiter)

	if s.hasHeader {
		if _, err := s.reader.Read(); err != nil {
			if err == io.EOF {
				s.finished = true
				return nil
			}
			return fmt.Errorf("failed to read csv header: %w", err)
		}
	}

	return nil
}

// Read returns the next record as a tuple, or io.EOF after the last one.
func (s *CSVSource) Read(ctx context.Context) (objectstorage.Tuple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.finished {
		return nil, io.EOF
	}

	if s.reader == nil {
		if err := s.init(); err != nil {
			return nil, err
		}
		if s.finished {
			return nil, io.EOF
		}
	}

	record, err := s.reader.Read()
	if err == io.EOF {
		s.finished = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv record: %w", err)
	}
	line, _ := s.reader.FieldPos(0)

	return s.toTuple(record, line)
}

func (s *CSVSource) toTuple(record []string, line int) (*tuple.DefaultTuple, error) {
	values, err := s.schema.Coerce(record)
	if err != nil {
		return nil, fmt.Errorf("%s line %d: %w", filepath.Base(s.filePath), line, err)
	}

	t := tuple.Acquire(s.schema)
	t.SetID(fmt.Sprintf("%s-%d", filepath.Base(s.filePath), line))
	for i, name := range s.schema.Names() {
		if err := t.Set(name, values[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (s *CSVSource) Ack(ctx context.Context, t objectstorage.Tuple) error {
	// files are replayable, nothing to acknowledge
	return nil
}

func (s *CSVSource) Ping(ctx context.Context) error {
	_, err := os.Stat(s.filePath)
	if err != nil {
		return fmt.Errorf("csv file not found or inaccessible: %w", err)
	}
	return nil
}

func (s *CSVSource) Close() error {
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// Sample reads the first record without disturbing the source position.
func (s *CSVSource) Sample(ctx context.Context) (objectstorage.Tuple, error) {
	file, err := os.Open(s.filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := newReader(file, s.delimiter)
	if s.hasHeader {
		if _, err := reader.Read(); err != nil {
			return nil, err
		}
	}

	record, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv file %s has no records", filepath.Base(s.filePath))
		}
		return nil, err
	}
	line, _ := reader.FieldPos(0)

	t, err := s.toTuple(record, line)
	if err != nil {
		return nil, err
	}
	t.SetID(fmt.Sprintf("sample-%s", filepath.Base(s.filePath)))
	return t, nil
}
