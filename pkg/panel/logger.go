package panel

// Field is one structured key/value pair attached to a log entry, e.g. the
// account id of a quota fetch or the classified outcome of a failure.
type Field struct {
	Key   string
	Value interface{}
}

// Logger receives diagnostic events from the fetcher, the session manager
// and the HTTP handlers. The logger/zerolog package provides a production
// implementation; the level in effect follows the runtime settings.
type Logger interface {
	// Debug logs fetch-by-fetch detail, visible only at the debug level.
	Debug(msg string, fields ...Field)

	// Info logs notable state changes such as a completed onboarding.
	Info(msg string, fields ...Field)

	// Warn logs recoverable upstream failures and policy denials.
	Warn(msg string, fields ...Field)

	// Error logs failures that lost data or aborted an operation.
	Error(msg string, fields ...Field)
}

// NoopLogger discards all log entries. It is the default wherever a Logger
// is optional.
type NoopLogger struct{}

func (n *NoopLogger) Debug(msg string, fields ...Field) {}
func (n *NoopLogger) Info(msg string, fields ...Field)  {}
func (n *NoopLogger) Warn(msg string, fields ...Field)  {}
func (n *NoopLogger) Error(msg string, fields ...Field) {}
