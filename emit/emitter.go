package emit

// Emitter matches stepflow.Emitter structurally (Go interfaces satisfy by
// shape, so this package never imports stepflow): every implementation
// here is usable directly as a Mount's Emitter. Kept as its own named
// interface so implementations and their tests can depend on it without
// reaching into stepflow.
type Emitter interface {
	Emit(kind, taskPath string, fields map[string]any)
}

// Func adapts a plain function to Emitter.
type Func func(kind, taskPath string, fields map[string]any)

func (f Func) Emit(kind, taskPath string, fields map[string]any) { f(kind, taskPath, fields) }
