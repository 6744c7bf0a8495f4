package emit

// NullEmitter discards every event: a zero-overhead sink for deployments
// or tests that don't care about lifecycle events.
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

func (n *NullEmitter) Emit(kind, taskPath string, fields map[string]any) {}

var _ Emitter = (*NullEmitter)(nil)
