// Package logging provides the structured logger used by the server.
//
// Log output always goes to a dedicated writer (stderr in production) and
// never to the protocol channel. Entries carry typed fields; per-request
// loggers are derived with WithFields or WithContext and inherit the level
// of their parent.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
)

// Level is the severity of an entry. The zero value is InfoLevel.
type Level int

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the lowercase level name used in log output
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// ParseLevel converts a configuration value such as "debug" or "WARN" to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Field is one key=value pair attached to an entry
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// ErrorField attaches err under the "error" key
func ErrorField(err error) Field { return Field{Key: "error", Value: err} }

// Logger writes structured entries. Loggers derived with the With methods
// share the output and level of their parent.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithFields returns a logger that adds fields to every entry
	WithFields(fields ...Field) Logger
	// WithContext returns a logger tagged with the request id carried by ctx
	WithContext(ctx context.Context) Logger
	// WithError returns a logger carrying err and, for classified errors,
	// its code and category
	WithError(err error) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Entry is one record handed to a Formatter
type Entry struct {
	Level   Level
	Message string
	Time    time.Time
	// Fields in attachment order. A key set twice keeps its first position
	// and its last value.
	Fields *orderedmap.OrderedMap[string, any]
}

// Formatter renders an entry as one line of output
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// sink is shared by a logger and every logger derived from it, so that
// writes from concurrent request handlers never interleave and a level
// change applies to the whole family.
type sink struct {
	mu        sync.Mutex
	output    io.Writer
	formatter Formatter

	levelMu sync.RWMutex
	level   Level
}

type baseLogger struct {
	sink   *sink
	fields *orderedmap.OrderedMap[string, any]
}

// New creates a new structured logger writing to output. A nil output
// means os.Stderr.
func New(output io.Writer, formatter Formatter) Logger {
	if output == nil {
		output = os.Stderr
	}
	if formatter == nil {
		formatter = NewTextFormatter()
	}

	return &baseLogger{
		sink: &sink{
			output:    output,
			formatter: formatter,
			level:     InfoLevel,
		},
		fields: orderedmap.New[string, any](),
	}
}

// NewFromConfig builds a logger from the configured level and format
// ("text" or "json").
func NewFromConfig(output io.Writer, level, format string) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch strings.ToLower(format) {
	case "", "text":
		formatter = NewTextFormatter()
	case "json":
		formatter = NewJSONFormatter()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	logger := New(output, formatter)
	logger.SetLevel(lvl)
	return logger, nil
}

// Nop returns a logger that discards everything
func Nop() Logger {
	logger := New(io.Discard, NewTextFormatter())
	logger.SetLevel(ErrorLevel + 1)
	return logger
}

func (l *baseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *baseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *baseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *baseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

// WithFields returns a new logger with additional fields
func (l *baseLogger) WithFields(fields ...Field) Logger {
	return &baseLogger{sink: l.sink, fields: l.merged(fields)}
}

// merged copies the logger's fields and appends fields after them
func (l *baseLogger) merged(fields []Field) *orderedmap.OrderedMap[string, any] {
	out := orderedmap.New[string, any]()
	for pair := l.fields.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	for _, field := range fields {
		out.Set(field.Key, field.Value)
	}
	return out
}

// WithContext returns a new logger with the request id carried by ctx
func (l *baseLogger) WithContext(ctx context.Context) Logger {
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		return l.WithFields(String(requestIDField, requestID))
	}
	return l
}

// WithError returns a new logger with error context. Classified errors
// anywhere in the chain contribute their code and category.
func (l *baseLogger) WithError(err error) Logger {
	fields := []Field{ErrorField(err)}

	if mcpErr, ok := mcperrors.AsMCPError(err); ok {
		fields = append(fields,
			Int("error_code", mcpErr.Code()),
			String("error_category", string(mcpErr.Category())),
			String("error_severity", string(mcpErr.Severity())),
		)

		if ctx := mcpErr.Context(); ctx != nil {
			if ctx.RequestID != "" {
				fields = append(fields, String(requestIDField, ctx.RequestID))
			}
			if ctx.Component != "" {
				fields = append(fields, String("component", ctx.Component))
			}
			if ctx.Operation != "" {
				fields = append(fields, String("operation", ctx.Operation))
			}
		}
	}

	return l.WithFields(fields...)
}

// SetLevel sets the minimum log level
func (l *baseLogger) SetLevel(level Level) {
	l.sink.levelMu.Lock()
	defer l.sink.levelMu.Unlock()
	l.sink.level = level
}

// GetLevel returns the current log level
func (l *baseLogger) GetLevel() Level {
	l.sink.levelMu.RLock()
	defer l.sink.levelMu.RUnlock()
	return l.sink.level
}

func (l *baseLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	data, err := l.sink.formatter.Format(&Entry{
		Level:   level,
		Message: msg,
		Time:    time.Now(),
		Fields:  l.merged(fields),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to format log entry: %v\n", err)
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if _, err := l.sink.output.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log entry: %v\n", err)
	}
}

const requestIDField = "request_id"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// ContextWithRequestID returns a context with a request ID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from a context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// ContextWithLogger attaches a logger to ctx so capability handlers can log
// with the fields of the request that invoked them
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return Nop()
}
