package stepflow

// interruptSignal is the engine's internal control-flow sentinel: raised
// whenever a Step either completes-and-enqueues-its-successor or is not
// yet ready to run, to unwind the entire handler in one motion.
//
// It travels as a plain panic carrying this unexported type. That makes
// the unconditional unwind a contract rather than a hard guarantee: a
// handler that installs its own blanket recover() can intercept any
// panic, including this one. The mitigation is the same one net/http uses
// for http.ErrAbortHandler: a handler-level recover() must check for
// *interruptSignal (via IsInterrupt) and re-panic it rather than swallow
// it. Handler code that never calls recover(), by far the common case,
// gets the unconditional unwind for free, because Go panics propagate
// through the call stack automatically without any re-raise boilerplate
// at intermediate callsites.
type interruptSignal struct {
	taskPath string
	reason   string
}

const (
	reasonTriggered  = "execution triggered"
	reasonInProgress = "in progress — skipping"
	reasonCommitted  = "step committed"
)

func raiseInterrupt(taskPath, reason string) {
	panic(&interruptSignal{taskPath: taskPath, reason: reason})
}

// IsInterrupt reports whether v (typically the value recovered from a
// panic) is a stepflow interrupt signal. Handler code that installs its
// own recover() around application logic wrapping Step calls must check
// this and re-panic when true (see interruptSignal's doc comment).
func IsInterrupt(v any) bool {
	_, ok := v.(*interruptSignal)
	return ok
}

// classifyInterrupt inspects a value already obtained from a direct
// recover() call (recover only has effect when called directly by a
// deferred function, so callers must call recover() themselves in their
// own deferred closure and pass the result here; a wrapping helper that
// calls recover() on the caller's behalf would see a nil panic value even
// during an active panic). If r is a stepflow interrupt it is reported as
// a non-error suspension; any other non-nil value is re-panicked, since
// only the step engine's own interrupts are part of this control-flow
// protocol.
func classifyInterrupt(r any) (*interruptSignal, bool) {
	if r == nil {
		return nil, false
	}
	sig, ok := r.(*interruptSignal)
	if !ok {
		panic(r)
	}
	return sig, true
}
