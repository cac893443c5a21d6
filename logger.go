package pandasim

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Severity classifies log messages.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging contract shared by the engine and the server.
//
type Logger interface {
	Logf(s Severity, format string, args ...interface{})
}

// StdLogger logs to the standard logger, dropping messages below
// minLevel.
type StdLogger struct {
	l        *log.Logger
	minLevel Severity
}

// NewStdLogger returns a StdLogger writing to stderr.
func NewStdLogger(minLevel Severity) *StdLogger {
	return NewStdLoggerWithWriter(os.Stderr, minLevel)
}

// NewStdLoggerWithWriter returns a StdLogger writing to w.
func NewStdLoggerWithWriter(w io.Writer, minLevel Severity) *StdLogger {
	return &StdLogger{
		l:        log.New(w, "", log.Ltime),
		minLevel: minLevel,
	}
}

// Logf logs a formatted message at severity s.
func (l *StdLogger) Logf(s Severity, format string, args ...interface{}) {
	if s < l.minLevel {
		return
	}
	l.l.Output(2, s.String()+": "+fmt.Sprintf(format, args...))
}

// NopLogger discards all messages.
type NopLogger struct{}

// Logf does nothing.
func (NopLogger) Logf(s Severity, format string, args ...interface{}) {}
