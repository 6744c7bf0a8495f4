package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchemaValidator is an EventSchema backed by JSON Schema documents,
// one per event type: schemas compile once at registration and are cached
// for the validator's lifetime.
type JSONSchemaValidator struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator returns a validator with no schemas registered;
// event types with no registered schema pass validation unconditionally,
// so callers opt specific event types into strict checking incrementally.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{schemas: make(map[string]*jsonschema.Schema)}
}

// RegisterSchema compiles schemaJSON (a JSON Schema document, Draft 2020-12)
// and associates it with eventType. Compilation happens once, at
// registration time; Validate only ever runs the compiled schema.
func (v *JSONSchemaValidator) RegisterSchema(eventType string, schemaJSON []byte) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	resourceURL := "stepflow://event/" + eventType
	if err := compiler.AddResource(resourceURL, bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("schema: add resource for %q: %w", eventType, err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return fmt.Errorf("schema: compile schema for %q: %w", eventType, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[eventType] = compiled
	return nil
}

// Validate implements EventSchema. An event type with no registered
// schema is accepted without inspection; a registered schema's
// violations are returned as-is (jsonschema.ValidationError carries a
// readable message tree).
func (v *JSONSchemaValidator) Validate(eventType string, data json.RawMessage) error {
	v.mu.RLock()
	compiled, ok := v.schemas[eventType]
	v.mu.RUnlock()
	if !ok {
		return nil
	}

	var decoded any
	if len(data) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("schema: event %q data is not valid JSON: %w", eventType, err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("schema: event %q failed validation: %w", eventType, err)
	}
	return nil
}

var _ EventSchema = (*JSONSchemaValidator)(nil)
