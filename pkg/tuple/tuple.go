package tuple

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/user/objectstorage"
	"github.com/user/objectstorage/pkg/schema"
)

// DefaultTuple is the concrete implementation of objectstorage.Tuple.
// It uses a sync.Pool to minimize allocations on hot injection paths.
type DefaultTuple struct {
	id     string
	schema *schema.Schema
	values []any
}

var tuplePool = sync.Pool{
	New: func() interface{} {
		return &DefaultTuple{}
	},
}

// Acquire gets an empty tuple for the given schema from the pool.
func Acquire(s *schema.Schema) *DefaultTuple {
	t := tuplePool.Get().(*DefaultTuple)
	t.schema = s
	if cap(t.values) < s.Len() {
		t.values = make([]any, s.Len())
	} else {
		t.values = t.values[:s.Len()]
	}
	return t
}

// Release returns a tuple to the pool.
func Release(t *DefaultTuple) {
	t.Reset()
	tuplePool.Put(t)
}

// New builds a tuple and checks the values against the schema.
func New(s *schema.Schema, values ...any) (*DefaultTuple, error) {
	if err := s.Validate(values); err != nil {
		return nil, err
	}
	t := Acquire(s)
	copy(t.values, values)
	return t, nil
}

// MustNew is like New but panics on error.
func MustNew(s *schema.Schema, values ...any) *DefaultTuple {
	t, err := New(s, values...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *DefaultTuple) ID() string {
	return t.id
}

func (t *DefaultTuple) SetID(id string) {
	t.id = id
}

func (t *DefaultTuple) Schema() *schema.Schema {
	return t.schema
}

func (t *DefaultTuple) Attributes() []string {
	return t.schema.Names()
}

func (t *DefaultTuple) Get(name string) (any, bool) {
	i, ok := t.schema.Index(name)
	if !ok {
		return nil, false
	}
	return t.values[i], true
}

// Set assigns an attribute by name. The value is not type checked.
func (t *DefaultTuple) Set(name string, v any) error {
	i, ok := t.schema.Index(name)
	if !ok {
		return fmt.Errorf("attribute %s not in %s", name, t.schema)
	}
	t.values[i] = v
	return nil
}

func (t *DefaultTuple) Values() []any {
	out := make([]any, len(t.values))
	copy(out, t.values)
	return out
}

func (t *DefaultTuple) Data() map[string]any {
	out := make(map[string]any, len(t.values))
	for i, name := range t.schema.Names() {
		out[name] = t.values[i]
	}
	return out
}

func (t *DefaultTuple) Clone() objectstorage.Tuple {
	c := Acquire(t.schema)
	c.id = t.id
	copy(c.values, t.values)
	return c
}

// Reset clears the tuple so it can be reused.
func (t *DefaultTuple) Reset() {
	t.id = ""
	t.schema = nil
	for i := range t.values {
		t.values[i] = nil
	}
	t.values = t.values[:0]
}

// Equal reports whether two tuples carry the same attribute names and values.
// IDs are not compared.
func Equal(a, b objectstorage.Tuple) bool {
	if a == nil || b == nil {
		return a == b
	}
	an, bn := a.Attributes(), b.Attributes()
	if len(an) != len(bn) {
		return false
	}
	av, bv := a.Values(), b.Values()
	for i := range an {
		if an[i] != bn[i] {
			return false
		}
		if !valueEqual(av[i], bv[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// MarshalJSON renders attributes in schema order. Timestamps become epoch
// milliseconds, the representation the parquet writer expects for TIMESTAMP_MILLIS.
func (t *DefaultTuple) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, a := range t.schema.Attributes() {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')

		v := t.values[i]
		if ts, ok := v.(time.Time); ok {
			v = ts.UnixMilli()
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Name, err)
		}
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// String renders the tuple as {name="value",n=1}.
func (t *DefaultTuple) String() string {
	return Format(t)
}

// Format renders any tuple as {name="value",n=1}.
func Format(t objectstorage.Tuple) string {
	var b strings.Builder
	b.WriteByte('{')
	values := t.Values()
	for i, name := range t.Attributes() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		switch v := values[i].(type) {
		case string:
			b.WriteString(strconv.Quote(v))
		case time.Time:
			b.WriteString(v.UTC().Format(time.RFC3339Nano))
		default:
			fmt.Fprintf(&b, "%v", v)
		}
	}
	b.WriteByte('}')
	return b.String()
}
