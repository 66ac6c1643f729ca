package hooking

import (
	"context"
	"log/slog"
)

// A LogAttrser can describe itself as structured log attributes.
type LogAttrser interface {
	LogAttrs() []slog.Attr
}

// A LogHook writes every hook invocation to a structured logger.
type LogHook struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogHook creates a LogHook that logs at the debug level.
func NewLogHook(logger *slog.Logger) *LogHook {
	return &LogHook{logger: logger, level: slog.LevelDebug}
}

// WithLevel sets the level the hook logs at.
func (h *LogHook) WithLevel(level slog.Level) *LogHook {
	h.level = level
	return h
}

// Func logs the hook position and the item.
func (h *LogHook) Func(ctx HookCtx) {
	if !h.logger.Enabled(context.Background(), h.level) {
		return
	}

	var attrs []slog.Attr
	if item, ok := ctx.Item.(LogAttrser); ok {
		attrs = item.LogAttrs()
	} else if ctx.Item != nil {
		attrs = append(attrs, slog.Any("item", ctx.Item))
	}

	h.logger.LogAttrs(context.Background(), h.level, ctx.Pos.Name, attrs...)
}
