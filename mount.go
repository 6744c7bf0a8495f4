package stepflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/corewire/stepflow/dispatch"
	"github.com/corewire/stepflow/metrics"
	"github.com/corewire/stepflow/schema"
	"github.com/corewire/stepflow/store"
)

// Emitter is the ambient observability hook a Mount reports step lifecycle
// events to; see stepflow/emit for ready-made implementations. It is kept
// as a single-method interface here (rather than importing stepflow/emit,
// which would create a cycle since emit implementations may want to import
// stepflow's types) so emit.LogEmitter and friends satisfy it structurally.
type Emitter interface {
	Emit(kind, taskPath string, fields map[string]any)
}

// MountOptions configures a Mount: the functions it serves, the execution
// mode, and the collaborators the engine needs a reference to.
type MountOptions struct {
	Functions     []Function
	ExecutionMode ExecutionMode
	Store         store.Store
	Dispatcher    dispatch.Dispatcher // may be nil in RunUntilError-only mounts
	Schema        schema.EventSchema  // optional; nil skips validation in Process
	Emitter       Emitter             // optional; nil is a no-op
	Metrics       *metrics.Collector  // optional; nil skips metric recording
	OnError       func(*EngineError)  // optional diagnostic hook for callback failures
	Now           func() int64        // optional clock override, for deterministic tests

	// MaxConcurrentFunctions caps how many matched functions run at once
	// for a single inbound context. Zero means no cap.
	MaxConcurrentFunctions int
}

// Mount wires a registry of functions to a store and dispatcher and runs
// the dispatch loop: Execute is the programmatic entry point, Process is
// the wire entry point for a delivered envelope.
type Mount struct {
	registry      *registry
	mode          ExecutionMode
	store         store.Store
	dispatcher    dispatch.Dispatcher
	schema        schema.EventSchema
	emitter       Emitter
	metrics       *metrics.Collector
	onError       func(*EngineError)
	now           func() int64
	maxConcurrent int
}

// NewMount validates function-id uniqueness and returns a ready-to-use
// Mount.
func NewMount(opts MountOptions) (*Mount, error) {
	reg, err := newRegistry(opts.Functions)
	if err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, &EngineError{Message: "mount requires a Store", Code: "STORE_REQUIRED"}
	}
	if opts.Dispatcher == nil && opts.ExecutionMode == Isolated {
		return nil, &EngineError{Message: "mount requires a Dispatcher in Isolated mode", Code: "DISPATCHER_REQUIRED"}
	}
	return &Mount{
		registry:      reg,
		mode:          opts.ExecutionMode,
		store:         opts.Store,
		dispatcher:    opts.Dispatcher,
		schema:        opts.Schema,
		emitter:       opts.Emitter,
		metrics:       opts.Metrics,
		onError:       opts.OnError,
		now:           opts.Now,
		maxConcurrent: opts.MaxConcurrentFunctions,
	}, nil
}

// emit reports a step lifecycle event to the configured Emitter and bumps
// the matching Prometheus counter, if any. It is the single place metrics
// touch the dispatch loop and step engine paths.
func (m *Mount) emit(kind, taskPath string, fields map[string]any) {
	if m.emitter != nil {
		m.emitter.Emit(kind, taskPath, fields)
	}
	if m.metrics == nil {
		return
	}
	functionID := taskPath
	if idx := strings.IndexByte(taskPath, ':'); idx >= 0 {
		functionID = taskPath[:idx]
	}
	switch kind {
	case "task_commit":
		m.metrics.StepsCommitted.WithLabelValues(functionID).Inc()
	case "task_interrupt":
		// The interrupt itself is counted once, on the function_suspended
		// event that follows it.
		reason, _ := fields["reason"].(string)
		if reason == reasonInProgress {
			m.metrics.TaskInProgressSkipped.WithLabelValues(functionID).Inc()
		}
	case "function_suspended":
		reason, _ := fields["reason"].(string)
		m.metrics.InterruptsRaised.WithLabelValues(reason).Inc()
	case "execution_disposed":
		m.metrics.ExecutionsDisposed.Inc()
	}
}

func (m *Mount) nowMillis() int64 {
	if m.now != nil {
		return m.now()
	}
	return defaultNowMillis()
}

// continuationQueue collects continuations raised by concurrently running
// functions within a single dequeued context, so each can append safely
// from its own goroutine. In Isolated mode Step never pushes to this
// (continuations are published via the dispatcher instead), so it stays
// empty; in RunUntilError mode it feeds the next loop iteration.
type continuationQueue struct {
	mu    sync.Mutex
	items []ExecutionContext
}

func (q *continuationQueue) push(ec ExecutionContext) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, ec)
}

func (q *continuationQueue) drain() []ExecutionContext {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Process parses rawPayload as an Envelope, validates its event against
// the configured schema (if any), and delegates to Execute.
func (m *Mount) Process(ctx context.Context, rawPayload []byte) error {
	envelope, err := parseEnvelope(rawPayload)
	if err != nil {
		return InvalidEventError(err)
	}
	if m.schema != nil {
		if err := m.schema.Validate(envelope.Event.Type, envelope.Event.Data); err != nil {
			return InvalidEventError(err)
		}
	}
	return m.Execute(ctx, envelope.Event, envelope.Context)
}

// Execute is the primary entry point. A nil ec synthesizes a
// fresh top-level execution; otherwise ec targets a specific in-flight
// execution, optionally a specific task within it.
func (m *Mount) Execute(ctx context.Context, event Event, ec *ExecutionContext) error {
	matched := m.registry.filterForEvent(event)
	if len(matched) == 0 {
		return nil
	}

	// A context without a taskId is a top-level entry whether it was
	// synthesized here or supplied by the caller, and the very first such
	// entry for an executionId doubles as the execution's creation.
	topLevel := ec == nil || ec.TaskID == nil

	if ec == nil {
		id, err := GenerateExecutionID()
		if err != nil {
			return &EngineError{Message: "failed to generate execution id", Code: "ID_GENERATION_FAILED", Err: err}
		}
		ec = &ExecutionContext{ExecutionID: id, Timestamp: m.nowMillis()}
	}

	if topLevel {
		// BeginExecution is idempotent, so create and re-enter share a path.
		if err := m.store.BeginExecution(ctx, ec.ExecutionID); err != nil {
			return StoreError("beginExecution", err)
		}
	} else {
		inProgress, err := m.store.IsExecutionInProgress(ctx, ec.ExecutionID)
		if err != nil {
			return StoreError("isExecutionInProgress", err)
		}
		if !inProgress {
			// Tolerates a delayed redelivery after disposal.
			m.emit("execution_not_in_progress", ec.ExecutionID, nil)
			return nil
		}
	}

	var prefetch map[string]string
	if bp, ok := m.store.(store.BulkPrefetcher); ok {
		p, err := bp.GetExecutionTaskResults(ctx, ec.ExecutionID)
		if err != nil {
			return StoreError("getExecutionTaskResults", err)
		}
		prefetch = p
	}

	queue := []ExecutionContext{*ec}
	anySuspended := false

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		collector := &continuationQueue{}
		suspended, errs := m.runMatchedFunctions(ctx, matched, event, current, prefetch, collector)
		anySuspended = anySuspended || suspended
		if len(errs) > 0 {
			if m.onError != nil {
				// The hook only sees callback failures: it is a diagnostic
				// for application code, not for store/dispatch transport
				// faults.
				for _, err := range errs {
					var ee *EngineError
					if errors.As(err, &ee) && ee.Code == "HANDLER_ERROR" {
						m.onError(ee)
					}
				}
			}
			return errors.Join(errs...)
		}

		queue = append(queue, collector.drain()...)
	}

	// Dispose only once the root handler has truly run to completion.
	// In Isolated mode every interrupt escapes this
	// invocation as a dispatcher publish, meaning more work is still
	// outstanding; only the final re-entry that hits cache all the way
	// through and never interrupts represents completion, whichever
	// delivery that turns out to be. In RunUntilError mode interrupts are
	// purely internal bookkeeping for the local continuation queue, so
	// draining that queue to empty (the loop condition above) already
	// means the handler ran to completion.
	if m.mode == RunUntilError || !anySuspended {
		if err := m.store.DisposeExecution(ctx, ec.ExecutionID); err != nil {
			return StoreError("disposeExecution", err)
		}
		m.emit("execution_disposed", ec.ExecutionID, nil)
	}
	return nil
}

// runMatchedFunctions runs every matched function against current
// concurrently, each as a supervised task that turns its own Interrupt
// into a successful suspension. When MaxConcurrentFunctions is set, a
// semaphore bounds how many handlers run at once.
func (m *Mount) runMatchedFunctions(
	ctx context.Context,
	matched []Function,
	event Event,
	current ExecutionContext,
	prefetch map[string]string,
	collector *continuationQueue,
) (anySuspended bool, errs []error) {
	var wg sync.WaitGroup
	suspended := make([]bool, len(matched))
	results := make([]error, len(matched))

	var sem chan struct{}
	if m.maxConcurrent > 0 {
		sem = make(chan struct{}, m.maxConcurrent)
	}

	for i, fn := range matched {
		wg.Add(1)
		go func(i int, fn Function) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			suspended[i], results[i] = m.runSupervised(ctx, fn, event, current, prefetch, collector)
		}(i, fn)
	}
	wg.Wait()

	for i, err := range results {
		anySuspended = anySuspended || suspended[i]
		if err != nil {
			errs = append(errs, err)
		}
	}
	return anySuspended, errs
}

// runSupervised builds the runState for one function's invocation and
// runs its handler under a deferred recover that turns a stepflow
// Interrupt into a successful (nil-error) suspension, the one place an
// Interrupt is allowed to come to rest. recover() must be called directly
// here, not in a helper, or it silently fails to catch the panic (see
// classifyInterrupt's doc).
func (m *Mount) runSupervised(
	ctx context.Context,
	fn Function,
	event Event,
	current ExecutionContext,
	prefetch map[string]string,
	collector *continuationQueue,
) (suspended bool, err error) {
	defer func() {
		if sig, ok := classifyInterrupt(recover()); ok {
			m.emit("function_suspended", sig.taskPath, map[string]any{"reason": sig.reason, "function": fn.ID})
			suspended = true
			err = nil
		}
	}()

	inboundTaskID := current.taskIDOrEmpty()
	rs := &runState{
		executionID:   current.ExecutionID,
		inboundTaskID: inboundTaskID,
		event:         event,
		mode:          m.mode,
		store:         m.store,
		dispatcher:    m.dispatcher,
		prefetch:      prefetch,
		queue:         collector,
		now:           m.now,
	}
	if m.emitter != nil || m.metrics != nil {
		executionID := current.ExecutionID
		rs.emitter = func(kind, taskPath string, fields map[string]any) {
			augmented := make(map[string]any, len(fields)+1)
			for k, v := range fields {
				augmented[k] = v
			}
			augmented["executionId"] = executionID
			m.emit(kind, taskPath, augmented)
		}
	}

	runCtx := withRunState(withPath(ctx, fn.ID), rs)
	_, err = fn.Handler(runCtx, event)
	return false, err
}
