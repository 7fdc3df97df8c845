package logger

// Logger is the logging contract used across idseq. Fields are variadic
// key/value pairs.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...interface{})

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...interface{})

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...interface{})

	// Error logs an error-level message with the error and optional
	// structured fields.
	Error(msg string, err error, fields ...interface{})
}

// Closeable is an optional interface for loggers that buffer output and need
// a flush on shutdown.
type Closeable interface {
	Close() error
}

// NoOpLogger discards all messages. It is the default for library use and
// tests.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{})        {}
func (NoOpLogger) Info(string, ...interface{})         {}
func (NoOpLogger) Warn(string, ...interface{})         {}
func (NoOpLogger) Error(string, error, ...interface{}) {}

var _ Logger = NoOpLogger{}
