// Package logger installs the process-wide slog handler and carries
// per-cycle log fields through a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Setup builds a text or JSON logger writing to w at the given level,
// installs it as the slog default and returns it.
func Setup(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(NewFieldsHandler(handler))
	slog.SetDefault(l)
	return l
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FieldsHandler adds the context's Fields to every record.
type FieldsHandler struct {
	slog.Handler
}

// NewFieldsHandler wraps h.
func NewFieldsHandler(h slog.Handler) *FieldsHandler {
	return &FieldsHandler{Handler: h}
}

func (h *FieldsHandler) Handle(ctx context.Context, r slog.Record) error {
	f := GetFields(ctx)
	if f.Cycle != 0 {
		r.AddAttrs(slog.Uint64("cycle", f.Cycle))
	}
	if f.Digest != "" {
		r.AddAttrs(slog.String("digest", f.Digest))
	}
	if f.Component != "" {
		r.AddAttrs(slog.String("component", f.Component))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *FieldsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FieldsHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *FieldsHandler) WithGroup(name string) slog.Handler {
	return &FieldsHandler{Handler: h.Handler.WithGroup(name)}
}

type contextKey string

const fieldsKey contextKey = "log_fields"

// Fields are structured values added to every log line written with a
// context that carries them.
type Fields struct {
	Cycle     uint64 // controller generation
	Digest    string // snapshot digest
	Component string
}

// WithFields merges fields into ctx; non-zero values in fields win.
func WithFields(ctx context.Context, fields Fields) context.Context {
	merged := GetFields(ctx)
	if fields.Cycle != 0 {
		merged.Cycle = fields.Cycle
	}
	if fields.Digest != "" {
		merged.Digest = fields.Digest
	}
	if fields.Component != "" {
		merged.Component = fields.Component
	}
	return context.WithValue(ctx, fieldsKey, merged)
}

// GetFields returns the fields stored in ctx, or the zero value.
func GetFields(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	if f, ok := ctx.Value(fieldsKey).(Fields); ok {
		return f
	}
	return Fields{}
}

// OrDefault returns l, or the slog default when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
