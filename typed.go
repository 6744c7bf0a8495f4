package stepflow

import (
	"encoding/json"
	"fmt"
)

// As converts the any returned by Step (or by a handler's top-level
// return) into a concrete type T. The core engine keeps its value domain
// untyped and JSON-serializable, so every committed value round-trips
// through encoding/json regardless of its origin; As performs that
// round-trip once at the call site, without making the engine itself
// generic.
func As[T any](value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	if v, ok := value.(T); ok {
		return v, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("stepflow.As: marshal intermediate value: %w", err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, fmt.Errorf("stepflow.As: unmarshal into %T: %w", out, err)
	}
	return out, nil
}
