// Package artifact defines the planning artifact documents and their JSON
// parsing: the Slice Map (ordered story outlines for a feature) and the
// Issue Bundle (a backlog of epics, user stories, tasks, and bugs).
//
// Validation operates on the generic parsed form (map[string]any) because a
// broken document cannot be decoded into the typed structs reliably. The
// typed form is decoded only after validation passes, which is why the
// renderer never re-checks required fields.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNotObject is returned when the top-level JSON value is not an object.
// This is a caller-stage error, distinct from schema violations.
var ErrNotObject = errors.New("top-level JSON value must be an object")

// ParseDocument decodes raw JSON into the generic document form used by
// validation. A syntax error or a non-object top level is reported here;
// everything past this point is the validator's business.
func ParseDocument(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return normalize(doc).(map[string]any), nil
}

// normalize rewrites json.Number values back to float64 so the validator
// sees the standard encoding/json type mapping. UseNumber is only needed to
// keep large ids from losing precision in the embedded JSON tail.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, elem := range val {
			val[k] = normalize(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = normalize(elem)
		}
		return val
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	default:
		return v
	}
}

// ReadDocumentFile reads and parses an artifact file from disk.
func ReadDocumentFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return doc, nil
}
