package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/config"
)

// Field keys shared by the generator, the metadata client and the CLI
const (
	FieldRunID      = "run_id"
	FieldExtraction = "extraction"
	FieldPath       = "path"
	FieldOperation  = "operation"
	FieldDuration   = "duration"
	FieldError      = "error"
)

const (
	logDirPerm  = 0755
	logFilePerm = 0644

	callerSkip = 3
)

// Entry is one emitted log line
type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Logger writes leveled entries as text or JSON lines. Loggers returned by
// WithField and friends share the parent's writer and lock.
type Logger struct {
	level      LogLevel
	json       bool
	out        io.Writer
	file       *os.File
	mu         *sync.Mutex
	fields     map[string]interface{}
	showCaller bool
}

// NewLogger creates a logger from the logging section of the configuration.
// Debug level also records the caller of each entry.
func NewLogger(cfg config.LoggingConfig) (*Logger, error) {
	level := ParseLevel(cfg.Level)

	out, file, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	logger := NewWriterLogger(out, level, cfg.Format)
	logger.file = file
	logger.showCaller = level == DebugLevel

	return logger, nil
}

func openOutput(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
	default:
		return nil, nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	if cfg.File == "" {
		return nil, nil, errors.New("log file path is required when output is 'file'")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), logDirPerm); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, file, nil
}

// NewWriterLogger creates a logger that writes to w
func NewWriterLogger(w io.Writer, level LogLevel, format string) *Logger {
	return &Logger{
		level: level,
		json:  strings.EqualFold(format, "json"),
		out:   w,
		mu:    &sync.Mutex{},
	}
}

// Discard returns a logger that drops every entry
func Discard() *Logger {
	return NewWriterLogger(io.Discard, ErrorLevel+1, "text")
}

// Level reports the minimum level this logger emits
func (l *Logger) Level() LogLevel {
	return l.level
}

// WithField returns a logger that adds key=value to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a logger that adds fields to every entry
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	child := *l
	child.mu = l.lock()
	child.fields = make(map[string]interface{}, len(l.fields)+len(fields))

	for k, v := range l.fields {
		child.fields[k] = v
	}

	for k, v := range fields {
		child.fields[k] = v
	}

	return &child
}

// WithError returns a logger carrying err as a field. A nil error returns l.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	return l.WithField(FieldError, err.Error())
}

// WithExtraction scopes the logger to one extraction
func (l *Logger) WithExtraction(name string) *Logger {
	return l.WithField(FieldExtraction, name)
}

func (l *Logger) lock() *sync.Mutex {
	if l.mu == nil {
		l.mu = &sync.Mutex{}
	}

	return l.mu
}

func (l *Logger) log(level LogLevel, message string, err error) {
	if level < l.level {
		return
	}

	entry := Entry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Fields:    l.fields,
	}

	if err != nil {
		entry.Error = err.Error()
	}

	if l.showCaller {
		entry.Caller = caller()
	}

	line := entry.text()
	if l.json {
		data, _ := json.Marshal(entry)
		line = string(data)
	}

	mu := l.lock()
	mu.Lock()
	defer mu.Unlock()

	_, _ = fmt.Fprintln(l.out, line)
}

// text renders "timestamp LEVEL [caller] message key=value... error=..."
// with fields sorted by key
func (e Entry) text() string {
	var b strings.Builder

	b.WriteString(e.Timestamp)
	fmt.Fprintf(&b, " %-5s", e.Level)

	if e.Caller != "" {
		b.WriteString(" [" + e.Caller + "]")
	}

	b.WriteString(" " + e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}

	if e.Error != "" {
		b.WriteString(" error=" + e.Error)
	}

	return b.String()
}

func caller() string {
	_, file, line, ok := runtime.Caller(callerSkip)
	if !ok {
		return "unknown"
	}

	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func (l *Logger) Debug(message string) { l.log(DebugLevel, message, nil) }
func (l *Logger) Info(message string)  { l.log(InfoLevel, message, nil) }
func (l *Logger) Warn(message string)  { l.log(WarnLevel, message, nil) }
func (l *Logger) Error(message string) { l.log(ErrorLevel, message, nil) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// ErrorWithErr logs message at error level with err in its own slot
func (l *Logger) ErrorWithErr(message string, err error) {
	l.log(ErrorLevel, message, err)
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	mu := l.lock()
	mu.Lock()
	defer mu.Unlock()

	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil

	return err
}
