package stepflow

import "context"

// ExecutionContext is the per-invocation tuple carried across dispatches.
// ExecutionID identifies one workflow instance; TaskID, when present,
// names the specific leaf task the current invocation is responsible for
// advancing. A nil TaskID means top-level re-entry: continue from
// wherever the handler now stands.
type ExecutionContext struct {
	ExecutionID string  `json:"executionId"`
	Timestamp   int64   `json:"timestamp"`
	TaskID      *string `json:"taskId,omitempty"`
}

// taskIDOrEmpty returns the inbound TaskID, or "" if this is a top-level
// re-entry.
func (c *ExecutionContext) taskIDOrEmpty() string {
	if c == nil || c.TaskID == nil {
		return ""
	}
	return *c.TaskID
}

// pathScopeKey is a private type for the context.Context key carrying the
// ambient task path; a private type keeps this package's context keys
// from colliding with a caller's own.
type pathScopeKey struct{}

// pathFromContext reports the current ambient task path, i.e. the path of
// the Step call whose callback is presently executing. Nested Step calls
// read it to compose their own full path, so handler code looks like
// ordinary sequential code and never passes a path explicitly.
func pathFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(pathScopeKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}

func withPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pathScopeKey{}, path)
}

// runContextKey carries the *runState for the current invocation: the
// store, dispatcher, prefetch cache, and continuation queue that Step
// needs access to but that handler code never touches directly.
type runContextKey struct{}

func withRunState(ctx context.Context, rs *runState) context.Context {
	return context.WithValue(ctx, runContextKey{}, rs)
}

func runStateFromContext(ctx context.Context) *runState {
	v := ctx.Value(runContextKey{})
	if v == nil {
		return nil
	}
	return v.(*runState)
}
