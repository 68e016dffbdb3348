package csv

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/objectstorage/pkg/schema"
)

const injectionDecl = "tuple<rstring tsStr, rstring customerId, float64 latitude, float64 longitude, timestamp ts>"

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCSVSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.csv", "tsStr,customerId,latitude,longitude,ts\n"+
		"2017-06-15 10:00:00,c1,40.5,-74.25,2017-06-15T10:00:00Z\n"+
		"2017-06-15 10:00:01,c2,41.5,-73.25,\"(1497520801,0,0)\"\n")

	source := NewCSVSource(filepath.Join(dir, "data.csv"), ',', true, schema.MustParse(injectionDecl))
	defer source.Close()

	ctx := context.Background()

	// Read first record
	t1, err := source.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read first record: %v", err)
	}
	if v, _ := t1.Get("customerId"); v != "c1" {
		t.Errorf("Unexpected customerId in first tuple: %v", v)
	}
	if v, _ := t1.Get("latitude"); v != 40.5 {
		t.Errorf("Unexpected latitude in first tuple: %v", v)
	}

	// Read second record
	t2, err := source.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read second record: %v", err)
	}
	ts, _ := t2.Get("ts")
	if !ts.(time.Time).Equal(time.Unix(1497520801, 0)) {
		t.Errorf("Unexpected ts in second tuple: %v", ts)
	}

	// Read EOF
	if _, err := source.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF, got: %v", err)
	}
	if _, err := source.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("Expected io.EOF on repeated read, got: %v", err)
	}
}

func TestCSVSourceSample(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.csv", "a,c1,1,2,1497520800\nb,c2,3,4,1497520801\n")

	source := NewCSVSource(filepath.Join(dir, "data.csv"), ',', false, schema.MustParse(injectionDecl))
	defer source.Close()

	tp, err := source.Sample(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := tp.Get("tsStr"); v != "a" {
		t.Errorf("Expected tsStr a, got %v", v)
	}

	// Sample must not consume the stream
	first, err := source.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := first.Get("tsStr"); v != "a" {
		t.Errorf("Expected first read tsStr a, got %v", v)
	}
}

func TestLoadTuples(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "in.txt", "x,c1,1,2,1497520800\n\ny,c2,3,4,1497520801\nz,c3,5,6,1497520802\n")

	tuples, err := LoadTuples(dir, "in.txt", ",", injectionDecl)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 3 {
		t.Fatalf("expected 3 tuples, got %d", len(tuples))
	}
	for i, want := range []string{"x", "y", "z"} {
		if v, _ := tuples[i].Get("tsStr"); v != want {
			t.Errorf("tuple %d: expected tsStr %s, got %v", i, want, v)
		}
		if len(tuples[i].Values()) != 5 {
			t.Errorf("tuple %d: expected 5 values", i)
		}
	}
}

func TestLoadTuplesMissingFile(t *testing.T) {
	_, err := LoadTuples(t.TempDir(), "missing.txt", ",", injectionDecl)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadTuplesSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "in.txt", "x,c1,1,2,1497520800\n")

	fourFields := "tuple<rstring tsStr, rstring customerId, float64 latitude, float64 longitude>"
	_, err := LoadTuples(dir, "in.txt", ",", fourFields)
	if !errors.Is(err, schema.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestLoadTuplesBadField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "in.txt", "x,c1,1,2,1497520800\ny,c2,north,4,1497520801\n")

	_, err := LoadTuples(dir, "in.txt", ",", injectionDecl)
	if !errors.Is(err, schema.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestLoadTuplesDelimiter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "in.txt", "x|c1|1|2|1497520800\n")

	tuples, err := LoadTuples(dir, "in.txt", "|", injectionDecl)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 {
		t.Fatalf("expected 1 tuple, got %d", len(tuples))
	}

	if _, err := LoadTuples(dir, "in.txt", "||", injectionDecl); err == nil {
		t.Fatal("expected error for multi-character delimiter")
	}
}
