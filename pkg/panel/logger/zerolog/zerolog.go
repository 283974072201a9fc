package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/ant2api/panelkit/pkg/panel"
)

// Logger implements panel.Logger using zerolog.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new zerolog logger adapter.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Debug(msg string, fields ...panel.Field) {
	l.log(l.logger.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...panel.Field) {
	l.log(l.logger.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...panel.Field) {
	l.log(l.logger.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...panel.Field) {
	l.log(l.logger.Error(), msg, fields)
}

func (l *Logger) log(event *zerolog.Event, msg string, fields []panel.Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		event = event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}

// LevelFor maps a panel log verbosity to the zerolog level enforcing it.
// Changing the level on a settings save is the caller's job; this keeps the
// mapping in one place.
func LevelFor(level panel.LogLevel) zerolog.Level {
	switch level {
	case panel.LogLevelOff:
		return zerolog.Disabled
	case panel.LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
