package shared

import "github.com/charmbracelet/log"

// Severity classifies log entries emitted through a [Sink].
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityNonCritical
	SeverityCritical
)

// String returns the display name for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityNonCritical:
		return "non-critical"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Sink receives structured error/log entries from the library subsystem.
//
// userVisible marks entries the application may surface to the user in
// addition to writing them to the log.
type Sink interface {
	Log(severity Severity, title, detail string, cause error, userVisible bool)
}

// LogSink adapts a [log.Logger] to the [Sink] interface.
//
// Info maps to Info, NonCritical to Warn, Critical to Error.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink writing to the given logger.
// A nil logger falls back to a default stderr logger.
func NewLogSink(l *log.Logger) *LogSink {
	if l == nil {
		l = NewLogger(nil)
	}
	return &LogSink{logger: l}
}

func (s *LogSink) Log(severity Severity, title, detail string, cause error, userVisible bool) {
	kv := []any{"detail", detail}
	if cause != nil {
		kv = append(kv, "cause", cause)
	}
	if userVisible {
		kv = append(kv, "user_visible", true)
	}

	switch severity {
	case SeverityCritical:
		s.logger.Error(title, kv...)
	case SeverityNonCritical:
		s.logger.Warn(title, kv...)
	default:
		s.logger.Info(title, kv...)
	}
}
