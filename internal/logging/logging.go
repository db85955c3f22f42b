package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

var logLevelNames = map[LogLevel]string{
	LogLevelTrace: "TRACE",
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
	LogLevelFatal: "FATAL",
}

// ParseLevel maps a config-file level name to a LogLevel. Unknown names
// fall back to info.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LogLevelTrace
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "fatal":
		return LogLevelFatal
	default:
		return LogLevelInfo
	}
}

type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component"`
	Operation string                 `json:"operation,omitempty"`
	Duration  string                 `json:"duration,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

type LoggerConfig struct {
	Level            LogLevel
	Component        string
	EnableJSON       bool
	EnableCaller     bool
	Output           io.Writer
	IncludeTimestamp bool
	TimestampFormat  string
}

// StructuredLogger is the process-wide structured logger. WithField and
// friends return a child logger sharing the parent's output and level;
// field maps are copied, never shared, so children are safe to hand to
// concurrent goroutines.
type StructuredLogger struct {
	config *LoggerConfig
	output io.Writer
	mu     sync.RWMutex
	fields map[string]interface{}
}

func NewStructuredLogger(config *LoggerConfig) *StructuredLogger {
	if config == nil {
		config = &LoggerConfig{
			Level:            LogLevelInfo,
			Component:        "solution-gateway",
			EnableJSON:       true,
			EnableCaller:     true,
			Output:           os.Stderr,
			IncludeTimestamp: true,
			TimestampFormat:  time.RFC3339Nano,
		}
	}

	if config.Output == nil {
		config.Output = os.Stderr
	}
	if config.Component == "" {
		config.Component = "solution-gateway"
	}
	if config.TimestampFormat == "" {
		config.TimestampFormat = time.RFC3339Nano
	}

	return &StructuredLogger{
		config: config,
		output: config.Output,
		fields: make(map[string]interface{}),
	}
}

func (l *StructuredLogger) child(extra map[string]interface{}) *StructuredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newLogger := &StructuredLogger{
		config: l.config,
		output: l.output,
		fields: make(map[string]interface{}, len(l.fields)+len(extra)),
	}

	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	for k, v := range extra {
		newLogger.fields[k] = v
	}

	return newLogger
}

func (l *StructuredLogger) WithField(key string, value interface{}) *StructuredLogger {
	return l.child(map[string]interface{}{key: value})
}

func (l *StructuredLogger) WithFields(fields map[string]interface{}) *StructuredLogger {
	return l.child(fields)
}

// WithLevel returns a child logger with its own level threshold. Unlike
// SetLevel, which adjusts the level shared by a logger and all its
// children, the returned logger's threshold is independent.
func (l *StructuredLogger) WithLevel(level LogLevel) *StructuredLogger {
	child := l.child(nil)
	configCopy := *l.config
	configCopy.Level = level
	child.config = &configCopy
	return child
}

func (l *StructuredLogger) WithError(err error) *StructuredLogger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *StructuredLogger) WithOperation(operation string) *StructuredLogger {
	return l.WithField("operation", operation)
}

func (l *StructuredLogger) WithDuration(duration time.Duration) *StructuredLogger {
	return l.WithField("duration", duration.String())
}

func (l *StructuredLogger) Trace(message string) {
	l.log(LogLevelTrace, message)
}

func (l *StructuredLogger) Tracef(format string, args ...interface{}) {
	l.log(LogLevelTrace, fmt.Sprintf(format, args...))
}

func (l *StructuredLogger) Debug(message string) {
	l.log(LogLevelDebug, message)
}

func (l *StructuredLogger) Debugf(format string, args ...interface{}) {
	l.log(LogLevelDebug, fmt.Sprintf(format, args...))
}

func (l *StructuredLogger) Info(message string) {
	l.log(LogLevelInfo, message)
}

func (l *StructuredLogger) Infof(format string, args ...interface{}) {
	l.log(LogLevelInfo, fmt.Sprintf(format, args...))
}

func (l *StructuredLogger) Warn(message string) {
	l.log(LogLevelWarn, message)
}

func (l *StructuredLogger) Warnf(format string, args ...interface{}) {
	l.log(LogLevelWarn, fmt.Sprintf(format, args...))
}

func (l *StructuredLogger) Error(message string) {
	l.log(LogLevelError, message)
}

func (l *StructuredLogger) Errorf(format string, args ...interface{}) {
	l.log(LogLevelError, fmt.Sprintf(format, args...))
}

func (l *StructuredLogger) log(level LogLevel, message string) {
	if level < l.GetLevel() {
		return
	}

	entry := l.createEntry(level, message)
	l.writeEntry(entry)
}

func (l *StructuredLogger) createEntry(level LogLevel, message string) *LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry := &LogEntry{
		Level:     logLevelNames[level],
		Message:   message,
		Component: l.config.Component,
	}

	if l.config.IncludeTimestamp {
		entry.Timestamp = time.Now()
	}

	if l.config.EnableCaller {
		if caller := l.getCaller(); caller != "" {
			entry.Caller = caller
		}
	}

	if len(l.fields) > 0 {
		entry.Context = make(map[string]interface{})
		for k, v := range l.fields {
			switch k {
			case "operation":
				if operation, ok := v.(string); ok {
					entry.Operation = operation
				}
			case "duration":
				if duration, ok := v.(string); ok {
					entry.Duration = duration
				}
			case "error":
				if errText, ok := v.(string); ok {
					entry.Error = errText
				}
			default:
				entry.Context[k] = v
			}
		}
	}

	return entry
}

func (l *StructuredLogger) writeEntry(entry *LogEntry) {
	var output string

	if l.config.EnableJSON {
		jsonData, err := json.Marshal(entry)
		if err != nil {
			output = fmt.Sprintf("%s [%s] %s: %s\n",
				entry.Timestamp.Format(l.config.TimestampFormat),
				entry.Level, entry.Component, entry.Message)
		} else {
			output = string(jsonData) + "\n"
		}
	} else {
		output = l.formatEntryHuman(entry)
	}

	_, _ = l.output.Write([]byte(output))
}

func (l *StructuredLogger) formatEntryHuman(entry *LogEntry) string {
	var parts []string

	if l.config.IncludeTimestamp {
		parts = append(parts, entry.Timestamp.Format(l.config.TimestampFormat))
	}

	parts = append(parts, fmt.Sprintf("[%s]", entry.Level))
	parts = append(parts, entry.Component)

	if entry.Operation != "" {
		parts = append(parts, "("+entry.Operation+")")
	}

	parts = append(parts, entry.Message)

	if entry.Duration != "" {
		parts = append(parts, "("+entry.Duration+")")
	}

	if entry.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%s", entry.Error))
	}

	if entry.Caller != "" {
		parts = append(parts, fmt.Sprintf("caller=%s", entry.Caller))
	}

	output := strings.Join(parts, " ") + "\n"

	if len(entry.Context) > 0 {
		for k, v := range entry.Context {
			output += fmt.Sprintf("  %s=%v\n", k, v)
		}
	}

	return output
}

func (l *StructuredLogger) getCaller() string {
	_, file, line, ok := runtime.Caller(4)
	if !ok {
		return ""
	}

	parts := strings.Split(file, "/")
	if len(parts) > 0 {
		file = parts[len(parts)-1]
	}

	return file + ":" + strconv.Itoa(line)
}

func (l *StructuredLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

func (l *StructuredLogger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Level
}

func (l *StructuredLogger) IsLevelEnabled(level LogLevel) bool {
	return level >= l.GetLevel()
}
