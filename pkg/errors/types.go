// Package errors provides the structured error taxonomy of the server.
//
// Every failure that reaches the dispatcher boundary is an MCPError carrying
// a JSON-RPC code and a category used to tag the response. The category also
// decides the severity used for logging. Causes are kept for logs and error
// chains but never copied into the message sent to the client.
package errors

import (
	"encoding/json"
	"errors"
	"time"
)

// Category classifies a failure for the client and for metrics
type Category string

const (
	// CategoryProtocol covers malformed framing, bad envelopes and unknown methods or capabilities
	CategoryProtocol Category = "protocol"
	// CategoryValidation covers argument shape violations
	CategoryValidation Category = "validation"
	// CategoryDomain covers business-rule failures reported by a handler
	CategoryDomain Category = "domain"
	// CategoryNotFound covers lookups that matched nothing
	CategoryNotFound  Category = "not_found"
	CategoryInternal  Category = "internal"
	CategoryTimeout   Category = "timeout"
	CategoryCancelled Category = "cancelled"
	// CategoryTransport covers channel read and write failures
	CategoryTransport Category = "transport"
)

// Severity is the log level a failure is reported at
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severity returns how loudly failures of this category are logged. Only
// faults inside the server itself are errors.
func (c Category) Severity() Severity {
	switch c {
	case CategoryDomain, CategoryCancelled:
		return SeverityInfo
	case CategoryInternal, CategoryTransport:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Context records where a failure was raised
type Context struct {
	RequestID string    `json:"request_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MCPError is a classified failure
type MCPError interface {
	error

	// Code is the JSON-RPC error code
	Code() int
	// Message is safe to send to a client
	Message() string
	// Data is attached to the JSON-RPC error object, next to the category
	Data() any
	Category() Category
	Severity() Severity
	Context() *Context

	WithContext(ctx *Context) MCPError
	WithData(data any) MCPError

	Unwrap() error
}

type classified struct {
	code     int
	message  string
	category Category
	data     any
	context  *Context
	cause    error
}

// Error includes the cause, so it belongs in logs and not on the wire
func (e *classified) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *classified) Code() int          { return e.code }
func (e *classified) Message() string    { return e.message }
func (e *classified) Data() any          { return e.data }
func (e *classified) Category() Category { return e.category }
func (e *classified) Severity() Severity { return e.category.Severity() }
func (e *classified) Context() *Context  { return e.context }
func (e *classified) Unwrap() error      { return e.cause }

func (e *classified) WithContext(ctx *Context) MCPError {
	c := *e
	c.context = ctx
	return &c
}

func (e *classified) WithData(data any) MCPError {
	c := *e
	c.data = data
	return &c
}

// MarshalJSON renders the client-visible parts. The cause is omitted.
func (e *classified) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code     int      `json:"code"`
		Message  string   `json:"message"`
		Category Category `json:"category"`
		Data     any      `json:"data,omitempty"`
	}{e.code, e.message, e.category, e.data})
}

// NewError creates a classified error
func NewError(code int, category Category, message string) MCPError {
	return &classified{
		code:     code,
		message:  message,
		category: category,
		context:  &Context{Timestamp: time.Now()},
	}
}

// Wrap classifies cause. Message replaces the cause's text for clients.
func Wrap(cause error, code int, category Category, message string) MCPError {
	return &classified{
		code:     code,
		message:  message,
		category: category,
		cause:    cause,
		context:  &Context{Timestamp: time.Now()},
	}
}

// AsMCPError extracts an MCPError from anywhere in the error chain
func AsMCPError(err error) (MCPError, bool) {
	var mcpErr MCPError
	if err != nil && errors.As(err, &mcpErr) {
		return mcpErr, true
	}
	return nil, false
}

// IsCategory reports whether err carries a classified error of category
func IsCategory(err error, category Category) bool {
	mcpErr, ok := AsMCPError(err)
	return ok && mcpErr.Category() == category
}

// CategoryOf returns the category of err, CategoryInternal for plain errors
func CategoryOf(err error) Category {
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr.Category()
	}
	return CategoryInternal
}
