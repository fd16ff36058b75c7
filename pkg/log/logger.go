package log

import "time"

// Logger provides structured logging capabilities.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Uint64 creates a uint64 field.
func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// With returns a Logger that prepends fields to every entry written through it.
// A nil logger yields a no-op logger.
func With(logger Logger, fields ...Field) Logger {
	if logger == nil {
		return NewNoopLogger()
	}
	if len(fields) == 0 {
		return logger
	}
	if parent, ok := logger.(*scoped); ok {
		merged := make([]Field, 0, len(parent.fields)+len(fields))
		merged = append(merged, parent.fields...)
		merged = append(merged, fields...)
		return &scoped{next: parent.next, fields: merged}
	}
	return &scoped{next: logger, fields: fields}
}

type scoped struct {
	next   Logger
	fields []Field
}

func (s *scoped) join(fields []Field) []Field {
	out := make([]Field, 0, len(s.fields)+len(fields))
	out = append(out, s.fields...)
	return append(out, fields...)
}

func (s *scoped) Debug(msg string, fields ...Field) { s.next.Debug(msg, s.join(fields)...) }
func (s *scoped) Info(msg string, fields ...Field)  { s.next.Info(msg, s.join(fields)...) }
func (s *scoped) Warn(msg string, fields ...Field)  { s.next.Warn(msg, s.join(fields)...) }
func (s *scoped) Error(msg string, fields ...Field) { s.next.Error(msg, s.join(fields)...) }
