package sqlite

import (
	"bytes"
	"encoding/json"
)

// decodeValue decodes a stored JSON value. Integral numbers come back as
// int64 so ids above 2^53 survive the round trip; other numbers are float64.
func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return resolveNumbers(v), nil
}

// decodeObject is decodeValue for columns holding a JSON object or null.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	for k, v := range m {
		m[k] = resolveNumbers(v)
	}
	return m, nil
}

func resolveNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = resolveNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = resolveNumbers(e)
		}
	}
	return v
}
