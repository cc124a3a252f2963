package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once
	levelMu      sync.RWMutex
)

// ParseLevel converts a level name to a LogLevel. Unknown names map to LevelInfo.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// initLevel reads DEBUG and LOG_LEVEL once.
func initLevel() {
	levelOnce.Do(func() {
		levelMu.Lock()
		defer levelMu.Unlock()

		switch strings.ToLower(os.Getenv("DEBUG")) {
		case "1", "true", "yes", "on":
			currentLevel = LevelDebug
			return
		}

		currentLevel = ParseLevel(os.Getenv("LOG_LEVEL"))
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetLevel overrides the level read from the environment.
func SetLevel(level LogLevel) {
	initLevel()
	levelMu.Lock()
	currentLevel = level
	levelMu.Unlock()
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logAt(level LogLevel, tag, format string, args ...interface{}) {
	if GetLevel() <= level {
		log.Printf("["+tag+"] "+format, args...)
	}
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	logAt(LevelDebug, "DEBUG", format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	logAt(LevelInfo, "INFO", format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	logAt(LevelWarn, "WARN", format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	logAt(LevelError, "ERROR", format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// JobLogger prefixes every message with the job it belongs to.
type JobLogger struct {
	prefix string
}

// ForJob returns a logger scoped to a single conversion job.
func ForJob(id string) JobLogger {
	return JobLogger{prefix: "[job " + id + "] "}
}

// Debug logs a job-scoped debug message
func (l JobLogger) Debug(format string, args ...interface{}) {
	Debug(l.prefix+format, args...)
}

// Info logs a job-scoped info message
func (l JobLogger) Info(format string, args ...interface{}) {
	Info(l.prefix+format, args...)
}

// Warn logs a job-scoped warning
func (l JobLogger) Warn(format string, args ...interface{}) {
	Warn(l.prefix+format, args...)
}

// Error logs a job-scoped error
func (l JobLogger) Error(format string, args ...interface{}) {
	Error(l.prefix+format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
