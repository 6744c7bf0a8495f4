package stepflow

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/corewire/stepflow/dispatch"
	"github.com/corewire/stepflow/metrics"
	"github.com/corewire/stepflow/schema"
	"github.com/corewire/stepflow/store"
)

// WorkerOptions is the configuration a Worker owns: the store and
// dispatcher a mount's functions will use, the optional schema validator,
// emitter, and metrics collector, and the execution mode new mounts
// default to.
type WorkerOptions struct {
	Store                  store.Store
	Dispatcher             dispatch.Dispatcher
	Schema                 schema.EventSchema
	Emitter                Emitter
	Metrics                *metrics.Collector
	ExecutionMode          ExecutionMode
	OnError                func(*EngineError)
	Now                    func() int64
	MaxConcurrentFunctions int
}

// Option configures a WorkerOptions, applied directly since a worker has
// no separate internal config type to indirect through.
type Option func(*WorkerOptions)

func WithStore(s store.Store) Option { return func(o *WorkerOptions) { o.Store = s } }

func WithDispatcher(d dispatch.Dispatcher) Option { return func(o *WorkerOptions) { o.Dispatcher = d } }

func WithSchema(s schema.EventSchema) Option { return func(o *WorkerOptions) { o.Schema = s } }

func WithEmitter(e Emitter) Option { return func(o *WorkerOptions) { o.Emitter = e } }

func WithMetrics(c *metrics.Collector) Option { return func(o *WorkerOptions) { o.Metrics = c } }

func WithExecutionMode(mode ExecutionMode) Option { return func(o *WorkerOptions) { o.ExecutionMode = mode } }

func WithOnError(fn func(*EngineError)) Option { return func(o *WorkerOptions) { o.OnError = fn } }

func WithNow(now func() int64) Option { return func(o *WorkerOptions) { o.Now = now } }

// WithMaxConcurrentFunctions caps how many matched functions a mount runs
// at once for a single inbound context; zero (the default) means no cap.
func WithMaxConcurrentFunctions(n int) Option {
	return func(o *WorkerOptions) { o.MaxConcurrentFunctions = n }
}

// Worker is a thin holder of WorkerOptions: it owns the collaborators
// functions and mounts are built from, exposes Publish for top-level
// event emission, and supports late rebinding via Configure (tests
// commonly swap the store or dispatcher after construction).
type Worker struct {
	mu      sync.RWMutex
	options WorkerOptions
}

// NewWorker builds a Worker from opts, applying each functional Option in
// order.
func NewWorker(opts ...Option) *Worker {
	w := &Worker{}
	for _, opt := range opts {
		opt(&w.options)
	}
	return w
}

// GetOptions returns a snapshot of the Worker's current options.
// Mutating the returned value does not affect the Worker.
func (w *Worker) GetOptions() WorkerOptions {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.options
}

// Configure merge-replaces the Worker's options: each Option in opts is
// applied to a copy of the current options, which then atomically
// replaces the live options, so a mid-flight Publish/Mount sees one
// options value throughout its call, never a half-updated one.
func (w *Worker) Configure(opts ...Option) {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.options
	for _, opt := range opts {
		opt(&next)
	}
	w.options = next
}

// CreateFunction delegates to CreateFunction (package-level), kept as a
// Worker method for callers that build everything through the facade,
// with no Worker-specific behavior of its own.
func (w *Worker) CreateFunction(id string, filter any, handler HandlerFunc) (Function, error) {
	return CreateFunction(id, filter, handler)
}

// Mount builds a Mount from the Worker's current options plus functions,
// snapshotting options at construction time.
func (w *Worker) Mount(functions []Function) (*Mount, error) {
	opts := w.GetOptions()
	mountOpts := MountOptions{
		Functions:              functions,
		ExecutionMode:          opts.ExecutionMode,
		Store:                  opts.Store,
		Dispatcher:             opts.Dispatcher,
		Schema:                 opts.Schema,
		Emitter:                opts.Emitter,
		Metrics:                opts.Metrics,
		OnError:                opts.OnError,
		Now:                    opts.Now,
		MaxConcurrentFunctions: opts.MaxConcurrentFunctions,
	}
	mount, err := NewMount(mountOpts)
	if err != nil {
		return nil, err
	}
	return mount, nil
}

// Publish serializes {event, context?} to JSON and dispatches it. A nil
// execCtx marks a top-level publish, for which a metrics collector, if
// configured, records one Publishes increment.
func (w *Worker) Publish(ctx context.Context, event Event, execCtx *ExecutionContext, dispatchOpts any) error {
	opts := w.GetOptions()
	if opts.Dispatcher == nil {
		return &EngineError{Message: "worker has no dispatcher configured", Code: "DISPATCHER_REQUIRED"}
	}

	envelope := Envelope{Event: event, Context: execCtx}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return &EngineError{Message: "failed to encode published envelope", Code: "ENCODE_ERROR", Err: err}
	}

	if err := opts.Dispatcher.Dispatch(ctx, raw, dispatchOpts); err != nil {
		return DispatchError(err)
	}

	if execCtx == nil && opts.Metrics != nil {
		opts.Metrics.Publishes.Inc()
	}
	return nil
}
