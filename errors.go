package stepflow

import (
	"errors"
	"fmt"
)

// EngineError is the core's structured error type: a message plus a
// stable machine-readable Code so callers can branch on failure kind
// without string matching.
type EngineError struct {
	Message string
	Code    string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Error kind constructors, one per failure class the engine recognizes.

// InvalidEventError is raised when process receives a payload whose event
// does not match the configured schema.
func InvalidEventError(err error) *EngineError {
	return &EngineError{Message: "event failed schema validation", Code: "INVALID_EVENT", Err: err}
}

// StoreError wraps any underlying store operation failure.
func StoreError(op string, err error) *EngineError {
	return &EngineError{Message: "store operation failed: " + op, Code: "STORE_ERROR", Err: err}
}

// DispatchError wraps a dispatcher failure at a continuation boundary.
func DispatchError(err error) *EngineError {
	return &EngineError{Message: "dispatch failed", Code: "DISPATCH_ERROR", Err: err}
}

// HandlerError wraps an error raised by a step callback. It is distinct
// from an error the handler itself returns after catching one of these;
// that one propagates as an ordinary Go error, not a HandlerError.
func HandlerError(taskPath string, err error) *EngineError {
	return &EngineError{Message: "step callback failed: " + taskPath, Code: "HANDLER_ERROR", Err: err}
}

// ErrDuplicateFunctionID is returned by Mount construction when two
// functions share an ID.
var ErrDuplicateFunctionID = errors.New("stepflow: duplicate function id")

// ErrFunctionIDEmpty / ErrHandlerNil guard Function registration.
var (
	ErrFunctionIDEmpty = errors.New("stepflow: function id must not be empty")
	ErrHandlerNil      = errors.New("stepflow: handler must not be nil")
	ErrFilterNil       = errors.New("stepflow: filter must not be nil")
)
