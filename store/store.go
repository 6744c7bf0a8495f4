// Package store defines the persistence contract the step engine relies
// on, plus reference implementations (memory, filesystem, Redis, MySQL,
// SQLite): one method per lifecycle transition, context-first signatures,
// logical misses reported as values rather than errors. None of this is
// exercised unless an application explicitly constructs one of these
// stores and wires it into stepflow.Mount.
package store

import "context"

// Store persists per-execution task state. All operations may fail with
// a transport error; a miss on a read is reported via a false bool,
// documented per method, never an error.
//
// Implementations must guarantee:
//   - commitExecutionTaskResult appears atomic with respect to any
//     concurrent isExecutionTaskInProgress/getExecutionTaskResult observer.
//   - disposeExecution deletes all (executionId, *) state atomically from
//     the caller's perspective.
type Store interface {
	// BeginExecution records that an execution exists.
	BeginExecution(ctx context.Context, executionID string) error

	// IsExecutionInProgress reports whether BeginExecution has been called
	// for executionID and DisposeExecution has not.
	IsExecutionInProgress(ctx context.Context, executionID string) (bool, error)

	// BeginExecutionTask idempotently marks taskPath as in-progress.
	BeginExecutionTask(ctx context.Context, executionID, taskPath string) error

	// IsExecutionTaskInProgress reports whether taskPath has an
	// in-progress marker (and is not yet committed).
	IsExecutionTaskInProgress(ctx context.Context, executionID, taskPath string) (bool, error)

	// GetExecutionTaskResult returns the committed value for taskPath, or
	// ok=false if no committed value exists.
	GetExecutionTaskResult(ctx context.Context, executionID, taskPath string) (value string, ok bool, err error)

	// CommitExecutionTaskResult atomically clears the in-progress marker
	// and writes value under taskPath. Once committed, the value is
	// immutable for the life of the execution.
	CommitExecutionTaskResult(ctx context.Context, executionID, taskPath, value string) error

	// DisposeExecution deletes all state for executionID.
	DisposeExecution(ctx context.Context, executionID string) error
}

// BulkPrefetcher is an optional capability: a store that can
// return every committed taskPath for an execution in one round trip.
// When a Store also implements this, Mount.Execute calls it once per
// call, before running any handler, and passes the result to the step engine
// as a read-through cache, saving one round trip per already-completed
// step on every replay.
type BulkPrefetcher interface {
	GetExecutionTaskResults(ctx context.Context, executionID string) (map[string]string, error)
}
