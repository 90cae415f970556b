package logger

import (
	"io"
	"log"
)

// Logger is the diagnostic logging contract used across the orchestrator,
// mainly for cleanup warnings that must not mask a primary result.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// StdLogger implements Logger on top of Go's standard logger.
type StdLogger struct {
	logger  *log.Logger
	verbose bool
}

// New creates a StdLogger writing to w. Debug messages are emitted
// only when verbose is true.
func New(w io.Writer, verbose bool) *StdLogger {
	return &StdLogger{
		logger:  log.New(w, "", log.LstdFlags),
		verbose: verbose,
	}
}

func (l *StdLogger) Info(msg string, args ...any) {
	l.logger.Printf("[INFO] "+msg, args...)
}

func (l *StdLogger) Warn(msg string, args ...any) {
	l.logger.Printf("[WARN] "+msg, args...)
}

func (l *StdLogger) Error(msg string, args ...any) {
	l.logger.Printf("[ERROR] "+msg, args...)
}

func (l *StdLogger) Debug(msg string, args ...any) {
	if l.verbose {
		l.logger.Printf("[DEBUG] "+msg, args...)
	}
}

// Nop is a Logger that discards everything. Useful in tests.
type Nop struct{}

func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
func (Nop) Debug(string, ...any) {}
