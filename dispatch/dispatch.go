// Package dispatch defines the transport contract the step engine relies
// on for enqueuing continuations, plus reference implementations
// (in-process, HTTP, Redis list, SQS). None of these implement retries or
// delivery guarantees themselves beyond what's documented per type;
// that contract is the dispatcher's own.
package dispatch

import "context"

// Dispatcher transports an opaque, already-serialized envelope to a sink
// that will eventually invoke a mount's Process method with those same
// bytes. The core assumes at-least-once eventual delivery; a dispatcher
// that can't guarantee that (e.g. fire-and-forget HTTP with no retry)
// forfeits durability on that boundary, a choice left to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, rawPayload []byte, opts any) error
}

// Sink is the function a hosting dispatcher eventually calls with the raw
// bytes of a delivered envelope, typically stepflow.Mount.Process.
type Sink func(ctx context.Context, rawPayload []byte) error
