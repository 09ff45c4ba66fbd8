package nettle

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel orders log messages by severity. LogOff silences a logger.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
	LogOff
)

var logLevelNames = map[LogLevel]string{
	LogDebug: "DEBUG",
	LogInfo:  "INFO",
	LogWarn:  "WARN",
	LogError: "ERROR",
	LogOff:   "OFF",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// parseLogLevel maps a config value to a level. Unknown names mean info.
func parseLogLevel(name string) LogLevel {
	for level, levelName := range logLevelNames {
		if strings.EqualFold(levelName, name) {
			return level
		}
	}
	return LogInfo
}

// Fields are key/value pairs appended to every line of a logger.
type Fields map[string]interface{}

// Logger writes levelled lines such as
//
//	2024-01-02 15:04:05 [INFO] Registered template template=Header
//
// Loggers derived with WithField share the writer and the level of their
// parent.
type Logger struct {
	out    *logSink
	fields Fields
}

// logSink is the state shared by a logger and everything derived from it.
type logSink struct {
	mu    sync.Mutex
	w     io.Writer
	level LogLevel
}

// NewLogger creates a logger writing to w. A nil writer discards output.
func NewLogger(w io.Writer, level LogLevel) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{out: &logSink{w: w, level: level}}
}

// SetLevel changes the level of this logger and of every logger derived from it.
func (l *Logger) SetLevel(level LogLevel) {
	l.out.mu.Lock()
	l.out.level = level
	l.out.mu.Unlock()
}

func (l *Logger) Level() LogLevel {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.out.level
}

func (l *Logger) IsDebugMode() bool {
	return l.Level() == LogDebug
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{out: l.out, fields: merged}
}

// suffix renders the fields as " k=v" pairs sorted by key.
func (l *Logger) suffix() string {
	if len(l.fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	return b.String()
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.level == LogOff || level < l.out.level {
		return
	}
	fmt.Fprintf(l.out.w, "%s [%s] %s%s\n",
		time.Now().Format("2006-01-02 15:04:05"), level, fmt.Sprintf(format, args...), l.suffix())
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LogWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogError, format, args...)
}

// DebugBlock records the output of one block. Templates compiled with
// DebugMode call it for every block, at info level, so the trace shows
// without lowering the logger level.
func (l *Logger) DebugBlock(block CodeBlock, output string) {
	l.WithFields(Fields{
		"kind":     block.Kind(),
		"position": block.StartPosition(),
	}).Info("Rendered %q -> %q", block.Signature(), output)
}

// defaultLogger backs compilers and renderers created without a logger.
var defaultLogger atomic.Pointer[Logger]

// GetLogger returns the default logger, creating a stderr logger at the
// level of the global configuration on first use.
func GetLogger() *Logger {
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}
	created := NewLogger(os.Stderr, parseLogLevel(GetGlobalConfig().LogLevel))
	if defaultLogger.CompareAndSwap(nil, created) {
		return created
	}
	return defaultLogger.Load()
}

// SetLogger replaces the default logger. nil restores the stderr logger.
func SetLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

// WithField derives a logger with one field from the default logger.
func WithField(key string, value interface{}) *Logger {
	return GetLogger().WithField(key, value)
}
