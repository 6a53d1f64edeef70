package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldDatabase = "database"
	FieldVersion  = "version"
)

// Field is a string key/value pair that is dropped when either side is blank.
type Field struct {
	Key   string
	Value string
}

// Fields converts pairs into zap fields, skipping blank keys and values.
func Fields(pairs ...Field) []zap.Field {
	out := make([]zap.Field, 0, len(pairs))
	for _, p := range pairs {
		key, value := strings.TrimSpace(p.Key), strings.TrimSpace(p.Value)
		if key == "" || value == "" {
			continue
		}
		out = append(out, zap.String(key, value))
	}
	return out
}

// With attaches fields to l. A nil logger becomes a no-op one.
func With(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ForComponent names the logger after a subsystem and tags the AI provider
// and model when they are known.
func ForComponent(l *zap.Logger, component, provider, model string) *zap.Logger {
	l = With(l, Fields(
		Field{Key: FieldProvider, Value: provider},
		Field{Key: FieldModel, Value: model},
	)...)
	if component != "" {
		l = l.Named(component)
	}
	return l
}
