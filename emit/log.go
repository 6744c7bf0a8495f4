package emit

import "go.uber.org/zap"

// LogEmitter implements Emitter by writing structured log entries through
// a *zap.Logger, one entry per step lifecycle event.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter wraps logger (e.g. zap.NewProduction()) as an Emitter.
// A nil logger falls back to zap.NewNop().
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmitter{logger: logger.Named("stepflow")}
}

// Emit logs kind at Info level, with taskPath and fields attached as
// structured zap fields.
func (l *LogEmitter) Emit(kind, taskPath string, fields map[string]any) {
	zapFields := make([]zap.Field, 0, len(fields)+1)
	zapFields = append(zapFields, zap.String("task_path", taskPath))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	l.logger.Info(kind, zapFields...)
}

var _ Emitter = (*LogEmitter)(nil)
