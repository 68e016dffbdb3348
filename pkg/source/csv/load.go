package csv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"unicode/utf8"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/schema"
)

// LoadTuples reads baseDir/fileName completely and returns its records as
// tuples of the declared schema, in file order. The file has no header row.
//
// It fails when the file is missing, when a record does not have exactly one
// field per attribute, or when a field cannot be coerced to its type.
func LoadTuples(baseDir, fileName, delimiter, schemaDecl string) ([]objectstorage.Tuple, error) {
	s, err := schema.Parse(schemaDecl)
	if err != nil {
		return nil, err
	}

	d, size := utf8.DecodeRuneInString(delimiter)
	if d == utf8.RuneError || size != len(delimiter) {
		return nil, fmt.Errorf("delimiter %q must be a single character", delimiter)
	}

	src := NewCSVSource(filepath.Join(baseDir, fileName), d, false, s)
	defer src.Close()

	ctx := context.Background()
	if err := src.Ping(ctx); err != nil {
		return nil, err
	}

	var out []objectstorage.Tuple
	for {
		t, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
