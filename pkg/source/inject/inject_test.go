package inject

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/schema"
	"github.com/user/objectstorage/pkg/tuple"
)

var pointSchema = schema.MustParse("tuple<rstring customerId, float64 latitude>")

func points(n int) []objectstorage.Tuple {
	out := make([]objectstorage.Tuple, n)
	for i := range out {
		out[i] = tuple.MustNew(pointSchema, string(rune('a'+i)), float64(i))
	}
	return out
}

func TestSourceOrderAndEOF(t *testing.T) {
	src, err := NewSource(points(5), pointSchema, 0)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		tp, err := src.Read(ctx)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if v, _ := tp.Get("latitude"); v != float64(i) {
			t.Errorf("read %d: expected latitude %d, got %v", i, i, v)
		}
	}

	if _, err := src.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if src.Emitted() != 5 {
		t.Errorf("expected 5 emitted, got %d", src.Emitted())
	}
}

func TestSourcePacing(t *testing.T) {
	src, err := NewSource(points(11), pointSchema, 100)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	for {
		if _, err := src.Read(context.Background()); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}
	// 11 tuples at 100/s with burst 1 need at least 10 intervals of 10ms
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected paced delivery, took only %v", elapsed)
	}
}

func TestSourceCancel(t *testing.T) {
	src, err := NewSource(points(3), pointSchema, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := src.Read(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if _, err := src.Read(ctx); err == nil {
		t.Fatal("expected error after cancel")
	}
	if src.Emitted() != 1 {
		t.Errorf("expected 1 emitted, got %d", src.Emitted())
	}
}

func TestSourceSchemaMismatch(t *testing.T) {
	other := schema.MustParse("tuple<rstring customerId>")
	_, err := NewSource(points(1), other, 100)
	if !errors.Is(err, schema.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestSourceClose(t *testing.T) {
	src, err := NewSource(points(2), pointSchema, 0)
	if err != nil {
		t.Fatal(err)
	}
	src.Close()
	if _, err := src.Read(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after close, got %v", err)
	}
}
