// Package stepflow implements a durable, resumable event-driven workflow
// engine: handlers are authored as straight-line functions over one event,
// composing named steps that are executed at most once to a successful
// result and cached thereafter, so a handler can be replayed from the top
// after arbitrary delays or process death and still make forward progress.
package stepflow

import (
	"encoding/json"
	"fmt"
)

// Event is an application-supplied record describing something that
// happened. Type is the only attribute the engine itself inspects; the
// rest of the payload is opaque to stepflow and interpreted by handlers
// and by the pluggable schema validator (see the schema package).
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EventFilter selects which registered functions should see a given event.
// Build one with TypeEquals, TypeIn, or Predicate.
type EventFilter func(Event) bool

// TypeEquals matches events whose Type is exactly typ.
func TypeEquals(typ string) EventFilter {
	return func(e Event) bool { return e.Type == typ }
}

// TypeIn matches events whose Type is a member of types.
func TypeIn(types ...string) EventFilter {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := set[e.Type]
		return ok
	}
}

// Predicate wraps an arbitrary function as an EventFilter.
func Predicate(fn func(Event) bool) EventFilter {
	return fn
}

// Envelope is the only wire/file format the core defines: a JSON object
// carrying an event and, on continuations, the execution context needed
// to resume a specific task. Context is absent on top-level publishes.
type Envelope struct {
	Event   Event             `json:"event"`
	Context *ExecutionContext `json:"context,omitempty"`
}

// parseEnvelope decodes a raw wire payload into an Envelope, the sole
// parsing step Mount.Process performs before handing the event to the
// configured schema validator.
func parseEnvelope(rawPayload []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(rawPayload, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	return envelope, nil
}
