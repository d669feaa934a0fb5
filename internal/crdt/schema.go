package crdt

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// wireSchema validates that a decoded JSON document has the shape
// §6.2 requires before the typed FromJSON* helpers attempt to
// interpret it. This is the same role internal/schema/validator.go
// plays in the teacher repo for entry content: a registry of compiled
// gojsonschema.Schema values keyed by discriminator, exercised before
// the payload is trusted.
type wireSchema struct {
	mu       sync.Mutex
	compiled map[string]*gojsonschema.Schema
}

var schemas = &wireSchema{compiled: make(map[string]*gojsonschema.Schema)}

func (w *wireSchema) get(kind, definition string) (*gojsonschema.Schema, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.compiled[kind]; ok {
		return s, nil
	}
	loader := gojsonschema.NewStringLoader(definition)
	s, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("crdt: invalid built-in schema for %s: %w", kind, err)
	}
	w.compiled[kind] = s
	return s, nil
}

// validateWire checks data against the named built-in schema and
// returns *ErrMalformedJSON describing every violation when it fails.
func validateWire(kind, definition string, data []byte) error {
	schema, err := schemas.get(kind, definition)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &ErrMalformedJSON{Type: kind, Reason: err.Error()}
	}
	if result.Valid() {
		return nil
	}
	reason := ""
	for i, e := range result.Errors() {
		if i > 0 {
			reason += "; "
		}
		reason += e.String()
	}
	return &ErrMalformedJSON{Type: kind, Reason: reason}
}

// Built-in wire schemas, one per §6.2 shape.
const (
	lwwRegisterSchema = `{
		"type": "object",
		"required": ["_metadata", "value"],
		"properties": {
			"_type": {"type": "string"},
			"_metadata": {
				"type": "object",
				"required": ["uid", "cnt"],
				"properties": {
					"cnt": {"type": "integer"}
				}
			}
		}
	}`

	lwwMapSchema = `{
		"type": "object",
		"properties": {
			"_type": {"type": "string"},
			"entries": {"type": "object"}
		}
	}`

	mvRegisterSchema = `{
		"type": "object",
		"required": ["_metadata", "value"],
		"properties": {
			"_type": {"type": "string"},
			"_metadata": {
				"type": "object",
				"required": ["entries", "causalContext"],
				"properties": {
					"entries": {"type": "array"},
					"causalContext": {"type": "object"}
				}
			},
			"value": {"type": "array"}
		}
	}`

	jsmRegisterSchema = `{
		"type": "object",
		"required": ["value"],
		"properties": {
			"_type": {"type": "string"},
			"value": {}
		}
	}`

	mvMapSchema = `{
		"type": "object",
		"required": ["_metadata"],
		"properties": {
			"_type": {"type": "string"},
			"_metadata": {
				"type": "object",
				"required": ["entries", "causalContext"],
				"properties": {
					"entries": {"type": "object"},
					"causalContext": {"type": "object"}
				}
			}
		}
	}`
)
