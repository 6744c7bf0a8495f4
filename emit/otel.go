package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OtelEmitter implements Emitter by creating one OpenTelemetry span per
// reported event: named after the event kind, attributes from its fields,
// error status when an error field is present. Spans are instantaneous
// markers (the step itself already durably records its own timing in the
// store), so each is started and ended back to back rather than wrapping
// the step's execution.
type OtelEmitter struct {
	tracer trace.Tracer
}

// NewOtelEmitter wraps tracer (e.g. otel.Tracer("stepflow")) as an Emitter.
func NewOtelEmitter(tracer trace.Tracer) *OtelEmitter {
	return &OtelEmitter{tracer: tracer}
}

func (o *OtelEmitter) Emit(kind, taskPath string, fields map[string]any) {
	_, span := o.tracer.Start(context.Background(), kind)
	defer span.End()

	span.SetAttributes(attribute.String("task_path", taskPath))
	for k, v := range fields {
		span.SetAttributes(attribute.String(k, fmt.Sprint(v)))
	}

	if reason, ok := fields["reason"].(string); ok && kind == "task_interrupt" {
		span.SetAttributes(attribute.String("interrupt.reason", reason))
	}
	if errMsg, ok := fields["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

var _ Emitter = (*OtelEmitter)(nil)
