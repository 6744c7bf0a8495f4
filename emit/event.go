// Package emit provides the ambient observability hook for stepflow's
// step engine and mount: per-task-path step lifecycle events
// (task_begin, task_commit, task_interrupt, function_suspended,
// execution_disposed, execution_not_in_progress).
package emit

// Event is one step-lifecycle occurrence reported by a Mount. Kind is one
// of the lifecycle labels above; TaskPath is the full colon-joined path
// the event concerns (or the executionId for execution-level events);
// Fields carries event-specific extras (e.g. "reason" on an interrupt).
type Event struct {
	Kind     string
	TaskPath string
	Fields   map[string]any
}
