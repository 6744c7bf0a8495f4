// Package schema defines the pluggable event-validation contract plus a
// JSON-Schema-backed implementation.
//
// The interface deliberately operates on an event's raw wire shape
// (type string + opaque data) rather than stepflow.Event itself, so this
// package never needs to import stepflow; the dependency runs the other
// way, from stepflow.Mount down into schema.EventSchema at the call site.
package schema

import "encoding/json"

// EventSchema validates an untyped event payload before any function
// runs. Validate receives the event's type discriminator and its opaque
// data payload; an error return is surfaced by Mount.Process as an
// invalid-event failure.
type EventSchema interface {
	Validate(eventType string, data json.RawMessage) error
}

// EventSchemaFunc adapts a plain function to EventSchema, the same shape
// as http.HandlerFunc.
type EventSchemaFunc func(eventType string, data json.RawMessage) error

func (f EventSchemaFunc) Validate(eventType string, data json.RawMessage) error {
	return f(eventType, data)
}
