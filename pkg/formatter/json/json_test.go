package json

import (
	"encoding/json"
	"testing"

	"github.com/user/objectstorage/pkg/schema"
	"github.com/user/objectstorage/pkg/tuple"
)

var pointSchema = schema.MustParse("tuple<rstring customerId, float64 latitude>")

func TestJSONFormatter(t *testing.T) {
	formatter := NewJSONFormatter()

	tp := tuple.MustNew(pointSchema, "john", 40.5)
	tp.SetID("test-id")

	data, err := formatter.Format(tp)
	if err != nil {
		t.Fatalf("failed to format tuple: %v", err)
	}

	if string(data) != `{"customerId":"john","latitude":40.5}` {
		t.Errorf("unexpected output %s", data)
	}
}

func TestJSONFormatterEnvelope(t *testing.T) {
	formatter := NewJSONFormatter()
	formatter.SetMode(ModeEnvelope)

	tp := tuple.MustNew(pointSchema, "john", 40.5)
	tp.SetID("test-id")

	data, err := formatter.Format(tp)
	if err != nil {
		t.Fatalf("failed to format tuple: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal formatted data: %v", err)
	}

	if parsed["id"] != "test-id" {
		t.Errorf("expected id test-id, got %v", parsed["id"])
	}
	inner, ok := parsed["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %T", parsed["data"])
	}
	if inner["customerId"] != "john" {
		t.Errorf("expected customerId john, got %v", inner["customerId"])
	}
}
