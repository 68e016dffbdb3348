package tuple

import (
	"testing"
	"time"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/schema"
)

var statusSchema = schema.MustParse("tuple<rstring objectName, uint64 objectSize>")

func TestAcquireRelease(t *testing.T) {
	tp := Acquire(statusSchema)
	if tp == nil {
		t.Fatal("Acquire returned nil")
	}
	tp.SetID("test-id")
	if err := tp.Set("objectName", "/a.parquet"); err != nil {
		t.Fatal(err)
	}

	Release(tp)

	tp2 := Acquire(statusSchema)
	if tp2.ID() != "" {
		t.Errorf("expected empty ID after release/acquire, got %s", tp2.ID())
	}
	if v, _ := tp2.Get("objectName"); v != nil {
		t.Errorf("expected empty objectName after release/acquire, got %v", v)
	}

	// Ensure it implements the interface
	var _ objectstorage.Tuple = (*DefaultTuple)(nil)
}

func TestNewValidates(t *testing.T) {
	if _, err := New(statusSchema, "/a.parquet", int64(10)); err == nil {
		t.Fatal("expected type error for int64 objectSize")
	}
	if _, err := New(statusSchema, "/a.parquet"); err == nil {
		t.Fatal("expected arity error")
	}

	tp, err := New(statusSchema, "/a.parquet", uint64(10))
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := tp.Get("objectSize"); !ok || v != uint64(10) {
		t.Errorf("unexpected objectSize %v", v)
	}
}

func TestEqual(t *testing.T) {
	a := MustNew(statusSchema, "/cos0.parquet.lzo", uint64(23575))
	b := MustNew(statusSchema, "/cos0.parquet.lzo", uint64(23575))
	b.SetID("other")
	c := MustNew(statusSchema, "/cos1.parquet.lzo", uint64(23575))

	if !Equal(a, b) {
		t.Error("expected tuples with same values to be equal")
	}
	if Equal(a, c) {
		t.Error("expected tuples with different names to differ")
	}
	if !Equal(a, a.Clone()) {
		t.Error("expected clone to be equal")
	}
}

func TestMarshalJSON(t *testing.T) {
	s := schema.MustParse("tuple<rstring customerId, float64 latitude, timestamp ts>")
	ts := time.Date(2017, 6, 15, 10, 0, 0, 0, time.UTC)
	tp := MustNew(s, "c1", 40.5, ts)

	b, err := tp.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"customerId":"c1","latitude":40.5,"ts":1497520800000}`
	if string(b) != want {
		t.Errorf("expected %s, got %s", want, b)
	}
}

func TestString(t *testing.T) {
	tp := MustNew(statusSchema, "/s3a0.parquet.lzo", uint64(23575))
	want := `{objectName="/s3a0.parquet.lzo",objectSize=23575}`
	if tp.String() != want {
		t.Errorf("expected %s, got %s", want, tp.String())
	}
}
