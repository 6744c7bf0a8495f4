package stepflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/corewire/stepflow/store"
)

// ExecutionMode selects how a Step's continuation is enqueued.
type ExecutionMode int

const (
	// Isolated publishes a fresh envelope via the dispatcher at every step
	// boundary. This is the default: each step becomes an independent unit
	// of work that can land on a different worker.
	Isolated ExecutionMode = iota
	// RunUntilError pushes continuations onto an in-process queue drained
	// within the same Mount.Execute call; no dispatcher publish happens.
	// Used in tests and batch scenarios.
	RunUntilError
)

// runState is the per-invocation handle Step needs but handler code never
// touches directly: the store, dispatcher, execution identity, the
// inbound targeting info and event, the bulk prefetch cache, and (in
// RunUntilError mode) the in-process continuation queue. One runState is
// constructed per matched function for each dequeued context inside
// Mount.Execute and threaded
// through context.Context (see withRunState), so handler code never sees
// it.
type runState struct {
	executionID   string
	inboundTaskID string // "" means top-level re-entry
	event         Event
	mode          ExecutionMode
	store         store.Store
	dispatcher    dispatcher
	prefetch      map[string]string // nil if the store has no BulkPrefetcher
	queue         continuationPusher
	emitter       emitFunc
	now           func() int64
}

// continuationPusher is the narrow interface Step needs onto Mount's
// continuationQueue, declared locally for the same reason the dispatcher
// interface below is: the dependency runs from Mount down into the
// engine, not the other way around.
type continuationPusher interface {
	push(ExecutionContext)
}

// dispatcher is the narrow slice of dispatch.Dispatcher the engine needs,
// declared locally so the step engine in this file does not depend on
// stepflow/dispatch; Mount (mount.go) imports that package and hands its
// dispatch.Dispatcher to runState, which satisfies this interface.
type dispatcher interface {
	Dispatch(ctx context.Context, rawPayload []byte, opts any) error
}

// emitFunc is the ambient observability hook a Mount installs; nil is a
// valid no-op emitter. Kept as a bare func type here (rather than pulling
// in stepflow/emit) so the core engine stays free of that dependency.
type emitFunc func(kind, taskPath string, fields map[string]any)

func (rs *runState) emit(kind, taskPath string, fields map[string]any) {
	if rs == nil || rs.emitter == nil {
		return
	}
	rs.emitter(kind, taskPath, fields)
}

func (rs *runState) nowMillis() int64 {
	if rs.now != nil {
		return rs.now()
	}
	return defaultNowMillis()
}

// Step is the single operation exposed to handlers: execute a named unit
// of work at most once, transparently replaying a cached result on every
// subsequent invocation that reaches this point in the handler.
//
// callback runs only in a delivery that targets fullPath or one of its
// descendants. A callback with no nested Step calls runs once for its
// commit; a callback that contains nested Step calls is re-entered in
// every delivery that targets one of its descendants, and only the run
// that completes without interrupting is committed. A callback that
// returns an error commits nothing. Its return value is JSON-marshaled for storage; pass a value of any
// JSON-serializable type, or nil. Use As[T] to convert the returned any
// back to a concrete type at the call site.
func Step(ctx context.Context, taskKey string, callback func(ctx context.Context) (any, error)) (any, error) {
	rs := runStateFromContext(ctx)
	if rs == nil {
		return nil, &EngineError{Message: "Step called outside a Mount-managed invocation", Code: "NO_RUN_STATE"}
	}

	parentPath, ok := pathFromContext(ctx)
	if !ok {
		return nil, &EngineError{Message: "Step called without an ambient path scope", Code: "NO_PATH_SCOPE"}
	}
	fullPath := parentPath + ":" + taskKey

	// Cached short-circuit: a committed result ends the call before any
	// targeting logic runs, which is what makes replay cheap.
	if v, ok := rs.prefetch[fullPath]; ok {
		return decodeResult(v)
	}
	if v, ok, err := rs.store.GetExecutionTaskResult(ctx, rs.executionID, fullPath); err != nil {
		return nil, StoreError("getExecutionTaskResult", err)
	} else if ok {
		return decodeResult(v)
	}

	targeted := rs.inboundTaskID != "" &&
		(rs.inboundTaskID == fullPath || strings.HasPrefix(rs.inboundTaskID, fullPath+":"))

	if targeted {
		// The inbound task is this step or a descendant: enter it.
		childCtx := withPath(ctx, fullPath)
		result, err := callback(childCtx)
		if err != nil {
			return nil, HandlerError(fullPath, err)
		}

		encoded, err := encodeResult(result)
		if err != nil {
			return nil, &EngineError{Message: "failed to encode step result: " + fullPath, Code: "ENCODE_ERROR", Err: err}
		}
		if err := rs.store.CommitExecutionTaskResult(ctx, rs.executionID, fullPath, encoded); err != nil {
			return nil, StoreError("commitExecutionTaskResult", err)
		}
		rs.emit("task_commit", fullPath, nil)

		if err := rs.enqueueContinuation(ctx, parentOf(fullPath)); err != nil {
			// The commit above already succeeded and is immutable, so a
			// redelivery will replay this step from cache; propagating the
			// dispatch failure here (rather than interrupting) surfaces it
			// to the caller as an ordinary invocation error.
			return nil, err
		}
		raiseInterrupt(fullPath, reasonCommitted)
		panic("unreachable") // raiseInterrupt always panics
	}

	// Not yet started. RunUntilError skips the in-progress marker: the
	// continuation queue lives in this process, so there is no concurrent
	// delivery to fence against, and the task goes straight from absent to
	// committed. That also keeps a stale marker left by a crashed Isolated
	// delivery from wedging an in-process drain.
	if rs.mode != RunUntilError {
		inProgress, err := rs.store.IsExecutionTaskInProgress(ctx, rs.executionID, fullPath)
		if err != nil {
			return nil, StoreError("isExecutionTaskInProgress", err)
		}
		if inProgress {
			rs.emit("task_interrupt", fullPath, map[string]any{"reason": reasonInProgress})
			raiseInterrupt(fullPath, reasonInProgress)
			panic("unreachable")
		}

		if err := rs.store.BeginExecutionTask(ctx, rs.executionID, fullPath); err != nil {
			return nil, StoreError("beginExecutionTask", err)
		}
		rs.emit("task_begin", fullPath, nil)
	}
	if err := rs.enqueueContinuation(ctx, fullPath); err != nil {
		return nil, err
	}
	raiseInterrupt(fullPath, reasonTriggered)
	panic("unreachable")
}

// enqueueContinuation hands off the next unit of work: in Isolated mode
// it publishes a fresh envelope via the dispatcher; in RunUntilError mode
// it pushes onto the in-process queue owned by the current Mount.Execute
// call.
func (rs *runState) enqueueContinuation(ctx context.Context, taskID string) error {
	next := ExecutionContext{ExecutionID: rs.executionID, Timestamp: rs.nowMillis(), TaskID: &taskID}

	if rs.mode == RunUntilError {
		rs.queue.push(next)
		return nil
	}

	envelope := Envelope{Event: rs.event, Context: &next}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return &EngineError{Message: "failed to encode continuation envelope", Code: "ENCODE_ERROR", Err: err}
	}
	if err := rs.dispatcher.Dispatch(ctx, raw, nil); err != nil {
		return DispatchError(err)
	}
	return nil
}

func parentOf(fullPath string) string {
	idx := strings.LastIndex(fullPath, ":")
	if idx < 0 {
		return ""
	}
	return fullPath[:idx]
}

func decodeResult(value string) (any, error) {
	if value == emptyResult {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return nil, &EngineError{Message: "failed to decode cached step result", Code: "DECODE_ERROR", Err: err}
	}
	return v, nil
}

func encodeResult(value any) (string, error) {
	if value == nil {
		return emptyResult, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
