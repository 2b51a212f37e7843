package utils

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// LogLevel orders log severities; messages below the configured level
// are dropped.
type LogLevel int

const (
	Debug   LogLevel = 10
	Info    LogLevel = 20
	Warning LogLevel = 30
	Error   LogLevel = 40
)

// Logger is a leveled, prefix-scoped logger. Each subsystem creates its
// own with the subsystem name as prefix.
type Logger struct {
	mu       sync.Mutex
	logger   *log.Logger
	logLevel LogLevel
}

// NewLogger creates a logger for the given subsystem. The level defaults
// to Info unless overridden.
func NewLogger(prefix string, logLevel ...LogLevel) *Logger {
	level := Info
	if len(logLevel) > 0 {
		level = logLevel[0]
	}
	return &Logger{
		logger:   log.New(os.Stdout, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		logLevel: level,
	}
}

// SetLogLevel changes the minimum severity that gets emitted
func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logLevel = logLevel
}

// Debug logs a debug message with optional key-value pairs
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.emit(Debug, "DEBUG", msg, keyvals...)
}

// Info logs an informational message with optional key-value pairs
func (l *Logger) Info(msg string, keyvals ...any) {
	l.emit(Info, "INFO", msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.emit(Warning, "WARN", msg, keyvals...)
}

// Error logs an error message with optional key-value pairs
func (l *Logger) Error(msg string, keyvals ...any) {
	l.emit(Error, "ERROR", msg, keyvals...)
}

func (l *Logger) emit(level LogLevel, tag, msg string, keyvals ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logLevel > level {
		return
	}
	l.logger.Println(formatMessage(tag, msg, keyvals...))
}

// formatMessage renders "[LEVEL] msg k=v k=v"; a trailing unpaired key
// is ignored.
func formatMessage(tag, msg string, keyvals ...any) string {
	formatted := fmt.Sprintf("[%s] %s", tag, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		formatted += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	return formatted
}
