package model

import (
	"encoding/json"
	"fmt"
)

// Metadata carries operation-specific detail. Values are kept as raw JSON
// so that an event decodes to exactly what was written: numbers stay
// numbers and nested objects keep their shape.
type Metadata map[string]json.RawMessage

// EncodeMetadata encodes each value to JSON. An empty map yields nil, the
// same value an omitted metadata field decodes to.
func EncodeMetadata(values map[string]any) (Metadata, error) {
	if len(values) == 0 {
		return nil, nil
	}
	m := make(Metadata, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", key, err)
		}
		m[key] = raw
	}
	return m, nil
}

// Decode unmarshals the value under key into v and reports whether the key
// was present.
func (m Metadata) Decode(key string, v any) (bool, error) {
	raw, ok := m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

// String returns the value under key if it is a JSON string, else "".
func (m Metadata) String(key string) string {
	var s string
	if ok, err := m.Decode(key, &s); !ok || err != nil {
		return ""
	}
	return s
}
