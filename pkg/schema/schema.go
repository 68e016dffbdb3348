package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrSchemaMismatch is returned when a record does not fit the declared tuple shape.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidDeclaration is returned for malformed tuple declarations.
	ErrInvalidDeclaration = errors.New("invalid tuple declaration")
)

// Type is an attribute type of a tuple declaration.
type Type int

const (
	RString Type = iota + 1
	UString
	Boolean
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Timestamp
)

var typeNames = map[Type]string{
	RString:   "rstring",
	UString:   "ustring",
	Boolean:   "boolean",
	Int8:      "int8",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
	UInt8:     "uint8",
	UInt16:    "uint16",
	UInt32:    "uint32",
	UInt64:    "uint64",
	Float32:   "float32",
	Float64:   "float64",
	Timestamp: "timestamp",
}

var namedTypes = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, n := range typeNames {
		m[n] = t
	}
	return m
}()

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// LookupType resolves a type name such as "rstring" or "float64".
func LookupType(name string) (Type, bool) {
	t, ok := namedTypes[strings.TrimSpace(name)]
	return t, ok
}

// Attribute is a named, typed tuple field.
type Attribute struct {
	Name string
	Type Type
}

// Schema is an ordered list of attributes.
type Schema struct {
	attrs []Attribute
	index map[string]int
}

// New builds a schema from attributes, rejecting empty or duplicate names.
func New(attrs ...Attribute) (*Schema, error) {
	if len(attrs) == 0 {
		return nil, fmt.Errorf("%w: tuple has no attributes", ErrInvalidDeclaration)
	}
	s := &Schema{
		attrs: make([]Attribute, 0, len(attrs)),
		index: make(map[string]int, len(attrs)),
	}
	for _, a := range attrs {
		if a.Name == "" {
			return nil, fmt.Errorf("%w: empty attribute name", ErrInvalidDeclaration)
		}
		if _, ok := typeNames[a.Type]; !ok {
			return nil, fmt.Errorf("%w: attribute %s has unknown type", ErrInvalidDeclaration, a.Name)
		}
		if _, dup := s.index[a.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate attribute %s", ErrInvalidDeclaration, a.Name)
		}
		s.index[a.Name] = len(s.attrs)
		s.attrs = append(s.attrs, a)
	}
	return s, nil
}

// Parse reads a declaration of the form "tuple<rstring a, float64 b>".
func Parse(decl string) (*Schema, error) {
	d := strings.TrimSpace(decl)
	if !strings.HasPrefix(d, "tuple<") || !strings.HasSuffix(d, ">") {
		return nil, fmt.Errorf("%w: %q must look like tuple<type name, ...>", ErrInvalidDeclaration, decl)
	}
	body := strings.TrimSpace(d[len("tuple<") : len(d)-1])
	if body == "" {
		return nil, fmt.Errorf("%w: tuple has no attributes", ErrInvalidDeclaration)
	}

	parts := strings.Split(body, ",")
	attrs := make([]Attribute, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(p)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: cannot read attribute %q", ErrInvalidDeclaration, strings.TrimSpace(p))
		}
		t, ok := LookupType(fields[0])
		if !ok {
			return nil, fmt.Errorf("%w: unsupported type %q for attribute %s", ErrInvalidDeclaration, fields[0], fields[1])
		}
		attrs = append(attrs, Attribute{Name: fields[1], Type: t})
	}
	return New(attrs...)
}

// MustParse is like Parse but panics on error. Intended for package-level declarations.
func MustParse(decl string) *Schema {
	s, err := Parse(decl)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Attributes() []Attribute {
	out := make([]Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out
}

func (s *Schema) Names() []string {
	out := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		out[i] = a.Name
	}
	return out
}

func (s *Schema) Len() int {
	return len(s.attrs)
}

// Index returns the position of the named attribute.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// String renders the canonical declaration; Parse(s.String()) yields an equal schema.
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString("tuple<")
	for i, a := range s.attrs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Type.String())
		b.WriteByte(' ')
		b.WriteString(a.Name)
	}
	b.WriteByte('>')
	return b.String()
}

func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.attrs) != len(o.attrs) {
		return false
	}
	for i := range s.attrs {
		if s.attrs[i] != o.attrs[i] {
			return false
		}
	}
	return true
}

// Coerce converts the raw text fields of one record into typed values.
func (s *Schema) Coerce(fields []string) ([]any, error) {
	if len(fields) != len(s.attrs) {
		return nil, fmt.Errorf("%w: got %d fields, %s declares %d", ErrSchemaMismatch, len(fields), s, len(s.attrs))
	}
	values := make([]any, len(fields))
	for i, a := range s.attrs {
		v, err := a.Type.Parse(fields[i])
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %v", ErrSchemaMismatch, a.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

// Validate checks that values carry the Go types the schema maps to.
func (s *Schema) Validate(values []any) error {
	if len(values) != len(s.attrs) {
		return fmt.Errorf("%w: got %d values, %s declares %d", ErrSchemaMismatch, len(values), s, len(s.attrs))
	}
	for i, a := range s.attrs {
		if !a.Type.accepts(values[i]) {
			return fmt.Errorf("%w: attribute %s expects %s, got %T", ErrSchemaMismatch, a.Name, a.Type, values[i])
		}
	}
	return nil
}

func (t Type) accepts(v any) bool {
	switch t {
	case RString, UString:
		_, ok := v.(string)
		return ok
	case Boolean:
		_, ok := v.(bool)
		return ok
	case Int8:
		_, ok := v.(int8)
		return ok
	case Int16:
		_, ok := v.(int16)
		return ok
	case Int32:
		_, ok := v.(int32)
		return ok
	case Int64:
		_, ok := v.(int64)
		return ok
	case UInt8:
		_, ok := v.(uint8)
		return ok
	case UInt16:
		_, ok := v.(uint16)
		return ok
	case UInt32:
		_, ok := v.(uint32)
		return ok
	case UInt64:
		_, ok := v.(uint64)
		return ok
	case Float32:
		_, ok := v.(float32)
		return ok
	case Float64:
		_, ok := v.(float64)
		return ok
	case Timestamp:
		_, ok := v.(time.Time)
		return ok
	}
	return false
}

// Parse converts a single text field to the Go value of type t.
func (t Type) Parse(raw string) (any, error) {
	switch t {
	case RString, UString:
		return raw, nil
	case Boolean:
		return strconv.ParseBool(strings.TrimSpace(raw))
	case Int8, Int16, Int32, Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, t.bits())
		if err != nil {
			return nil, err
		}
		switch t {
		case Int8:
			return int8(n), nil
		case Int16:
			return int16(n), nil
		case Int32:
			return int32(n), nil
		}
		return n, nil
	case UInt8, UInt16, UInt32, UInt64:
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, t.bits())
		if err != nil {
			return nil, err
		}
		switch t {
		case UInt8:
			return uint8(n), nil
		case UInt16:
			return uint16(n), nil
		case UInt32:
			return uint32(n), nil
		}
		return n, nil
	case Float32:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case Float64:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case Timestamp:
		return ParseTimestamp(raw)
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

func (t Type) bits() int {
	switch t {
	case Int8, UInt8:
		return 8
	case Int16, UInt16:
		return 16
	case Int32, UInt32:
		return 32
	}
	return 64
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp accepts RFC 3339, "2006-01-02 15:04:05[.fff]", the SPL literal
// "(seconds,nanoseconds,machineId)" and decimal epoch seconds. Results are UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		parts := strings.Split(v[1:len(v)-1], ",")
		if len(parts) < 2 || len(parts) > 3 {
			return time.Time{}, fmt.Errorf("timestamp literal %q must be (seconds,nanoseconds,machineId)", v)
		}
		sec, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp seconds: %w", err)
		}
		nsec, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp nanoseconds: %w", err)
		}
		if nsec < 0 || nsec >= int64(time.Second) {
			return time.Time{}, fmt.Errorf("timestamp nanoseconds %d out of range", nsec)
		}
		return time.Unix(sec, nsec).UTC(), nil
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}

	if f, err := strconv.ParseFloat(v, 64); err == nil {
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", v)
}

type parquetField struct {
	Tag    string          `json:"Tag"`
	Fields []*parquetField `json:"Fields,omitempty"`
}

// ParquetSchema returns the JSON schema definition understood by the
// xitongsys parquet writer. Every attribute is REQUIRED.
func (s *Schema) ParquetSchema(name string) (string, error) {
	if name == "" {
		name = "parquet_go_root"
	}
	root := &parquetField{Tag: fmt.Sprintf("name=%s, repetitiontype=REQUIRED", name)}
	for _, a := range s.attrs {
		tag, err := parquetTag(a)
		if err != nil {
			return "", err
		}
		root.Fields = append(root.Fields, &parquetField{Tag: tag})
	}
	b, err := json.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parquetTag(a Attribute) (string, error) {
	var physical string
	switch a.Type {
	case RString, UString:
		physical = "type=BYTE_ARRAY, convertedtype=UTF8"
	case Boolean:
		physical = "type=BOOLEAN"
	case Int8:
		physical = "type=INT32, convertedtype=INT_8"
	case Int16:
		physical = "type=INT32, convertedtype=INT_16"
	case Int32:
		physical = "type=INT32"
	case Int64:
		physical = "type=INT64"
	case UInt8:
		physical = "type=INT32, convertedtype=UINT_8"
	case UInt16:
		physical = "type=INT32, convertedtype=UINT_16"
	case UInt32:
		physical = "type=INT32, convertedtype=UINT_32"
	case UInt64:
		physical = "type=INT64, convertedtype=UINT_64"
	case Float32:
		physical = "type=FLOAT"
	case Float64:
		physical = "type=DOUBLE"
	case Timestamp:
		physical = "type=INT64, convertedtype=TIMESTAMP_MILLIS"
	default:
		return "", fmt.Errorf("attribute %s: no parquet mapping for %s", a.Name, a.Type)
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=REQUIRED", a.Name, physical), nil
}
