package logger

import "context"

// Logger is the structured logger every component receives. Fields are
// flattened into the log line by the implementation.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})

	// WithField returns a child logger that adds key to every entry.
	WithField(key string, value interface{}) Logger

	// WithFields returns a child logger that adds all of fields to every entry.
	WithFields(fields map[string]interface{}) Logger
}

// Component returns a child logger tagged with the component name. Every
// pipeline stage logs through one of these so entries can be filtered per stage.
func Component(l Logger, name string) Logger {
	return l.WithField("component", name)
}
