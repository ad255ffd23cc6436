package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logging format constants
const (
	LogFormatJSONL  = "jsonl"
	LogFormatPretty = "pretty"
)

// IsValidLogFormat returns true if the provided format is supported.
func IsValidLogFormat(f string) bool {
	return f == LogFormatJSONL || f == LogFormatPretty
}

// LogLevel orders log entries by severity
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// ParseLogLevel converts a level name into a LogLevel
func ParseLogLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", name)
	}
}

// LogEntry represents a single structured log line
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Level     string         `json:"level"`
	Event     string         `json:"event"`
	RuleID    string         `json:"rule_id,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Logger writes LogEntry records to an io.Writer. A nil *Logger discards everything,
// so callers never need to check whether logging is enabled.
type Logger struct {
	out    io.Writer
	format string
	level  LogLevel
	runID  string
	ruleID string
	mu     *sync.Mutex
	now    func() time.Time
}

// NewLogger creates a logger for one invocation with a fresh run id
func NewLogger(out io.Writer, format string, level LogLevel) *Logger {
	if !IsValidLogFormat(format) {
		format = LogFormatJSONL
	}
	return &Logger{
		out:    out,
		format: format,
		level:  level,
		runID:  uuid.NewString(),
		mu:     &sync.Mutex{},
		now:    time.Now,
	}
}

// RunID returns the identifier shared by every entry of this invocation
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// WithRule returns a logger that stamps entries with the given rule id
func (l *Logger) WithRule(ruleID string) *Logger {
	if l == nil {
		return nil
	}
	child := *l
	child.ruleID = ruleID
	return &child
}

// Debug logs at debug level
func (l *Logger) Debug(event, message string, details map[string]any) {
	l.log(LevelDebug, event, message, details)
}

// Info logs at info level
func (l *Logger) Info(event, message string, details map[string]any) {
	l.log(LevelInfo, event, message, details)
}

// Warn logs at warn level
func (l *Logger) Warn(event, message string, details map[string]any) {
	l.log(LevelWarn, event, message, details)
}

// Error logs at error level
func (l *Logger) Error(event, message string, details map[string]any) {
	l.log(LevelError, event, message, details)
}

func (l *Logger) log(level LogLevel, event, message string, details map[string]any) {
	if l == nil || l.out == nil || level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: l.now().Format(time.RFC3339),
		RunID:     l.runID,
		Level:     level.String(),
		Event:     event,
		RuleID:    l.ruleID,
		Message:   message,
		Details:   details,
	}

	var data []byte
	var err error
	if l.format == LogFormatPretty {
		data, err = json.MarshalIndent(entry, "", "  ")
	} else {
		data, err = json.Marshal(entry)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write to log file: %v\n", err)
	}
}
