package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TextFormatter writes one logfmt line per entry:
//
//	time=2025-03-14T15:09:26.535Z level=info msg="Server ready" service=demo
//
// Fields follow in the order they were attached, parent logger fields first.
type TextFormatter struct {
	// TimeFormat is the layout for the time key
	TimeFormat string
	// DisableTime drops the time key
	DisableTime bool
}

// NewTextFormatter creates a text formatter with millisecond UTC timestamps
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
}

// Format renders entry as a single logfmt line
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer

	if !f.DisableTime {
		buf.WriteString("time=")
		buf.WriteString(entry.Time.UTC().Format(f.TimeFormat))
		buf.WriteByte(' ')
	}
	buf.WriteString("level=")
	buf.WriteString(entry.Level.String())
	buf.WriteString(" msg=")
	buf.WriteString(logfmtValue(entry.Message))

	if entry.Fields != nil {
		for pair := entry.Fields.Oldest(); pair != nil; pair = pair.Next() {
			buf.WriteByte(' ')
			buf.WriteString(pair.Key)
			buf.WriteByte('=')
			buf.WriteString(logfmtValue(plainValue(pair.Value)))
		}
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// logfmtValue quotes v when it would otherwise break key=value parsing
func logfmtValue(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if s == "" {
		return `""`
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r == ' ' || r == '=' || r == '"' || !unicode.IsPrint(r)
}

// plainValue turns values without a useful JSON or text form into strings
func plainValue(v any) any {
	switch val := v.(type) {
	case error:
		return val.Error()
	case time.Duration:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}

// JSONFormatter writes one JSON object per entry with the timestamp, level
// and message keys first
type JSONFormatter struct {
	// TimeFormat is the layout for the timestamp key
	TimeFormat string
	// DisableTime drops the timestamp key
	DisableTime bool
}

// NewJSONFormatter creates a JSON formatter with RFC 3339 millisecond timestamps
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
}

// Format renders entry as a JSON object followed by a newline
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	obj := orderedmap.New[string, any]()
	if !f.DisableTime {
		obj.Set("timestamp", entry.Time.UTC().Format(f.TimeFormat))
	}
	obj.Set("level", entry.Level.String())
	obj.Set("message", entry.Message)

	if entry.Fields != nil {
		for pair := entry.Fields.Oldest(); pair != nil; pair = pair.Next() {
			obj.Set(pair.Key, plainValue(pair.Value))
		}
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log entry: %w", err)
	}
	return append(out, '\n'), nil
}
