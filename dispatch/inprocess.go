package dispatch

import (
	"context"
	"sync"
)

// InProcessDispatcher is the built-in collaborator for tests and
// single-process batch scenarios. It delivers synchronously by calling a
// bound Sink directly: there is no network hop, so delivery is
// exactly-once rather than at-least-once, but the contract with callers
// is the same: Dispatch only returns after the sink has run.
//
// Every dispatched envelope is also recorded, so tests can assert on
// publish counts and payloads.
type InProcessDispatcher struct {
	mu        sync.Mutex
	sink      Sink
	published [][]byte
}

// NewInProcessDispatcher creates a dispatcher with no sink bound yet.
// Until Bind is called, dispatched envelopes are recorded but delivered
// nowhere.
func NewInProcessDispatcher() *InProcessDispatcher {
	return &InProcessDispatcher{}
}

// Bind attaches the sink envelopes are delivered to. Mount.Process is the
// usual sink; tests may bind a recording stub instead.
func (d *InProcessDispatcher) Bind(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

func (d *InProcessDispatcher) Dispatch(ctx context.Context, rawPayload []byte, _ any) error {
	d.mu.Lock()
	d.published = append(d.published, append([]byte(nil), rawPayload...))
	sink := d.sink
	d.mu.Unlock()

	if sink == nil {
		return nil
	}
	return sink(ctx, rawPayload)
}

// Published returns every envelope Dispatch has been called with, in
// call order. Intended for test assertions on publish counts and
// targeted taskIds.
func (d *InProcessDispatcher) Published() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.published))
	copy(out, d.published)
	return out
}

var _ Dispatcher = (*InProcessDispatcher)(nil)
