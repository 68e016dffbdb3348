package json

import (
	"encoding/json"
	"fmt"

	"github.com/user/objectstorage"
)

type JSONMode string

const (
	// ModeTuple writes the attributes in schema order.
	ModeTuple JSONMode = "tuple"
	// ModeEnvelope wraps the attributes with the tuple ID.
	ModeEnvelope JSONMode = "envelope"
)

type JSONFormatter struct {
	Mode JSONMode
}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{Mode: ModeTuple}
}

func (f *JSONFormatter) SetMode(mode JSONMode) {
	f.Mode = mode
}

func (f *JSONFormatter) Format(t objectstorage.Tuple) ([]byte, error) {
	if f.Mode == ModeEnvelope {
		data, err := json.Marshal(map[string]interface{}{
			"id":   t.ID(),
			"data": t.Data(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tuple to JSON: %w", err)
		}
		return data, nil
	}

	// Tuples that know their schema keep attribute order
	if marshaler, ok := t.(json.Marshaler); ok {
		return marshaler.MarshalJSON()
	}

	data, err := json.Marshal(t.Data())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tuple to JSON: %w", err)
	}
	return data, nil
}
