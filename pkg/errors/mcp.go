package errors

import (
	"fmt"
	"time"
)

// CapabilityErrorData contains structured data for capability lookup errors
type CapabilityErrorData struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// OperationErrorData contains structured data for time-bounded operations
type OperationErrorData struct {
	Operation string `json:"operation"`
	Timeout   string `json:"timeout,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ParseError creates an error for a frame that is not valid JSON
func ParseError(cause error) MCPError {
	return Wrap(cause, CodeParseError, CategoryProtocol, "Parse error")
}

// InvalidRequest creates an error for a JSON value that is not a request envelope
func InvalidRequest(reason string) MCPError {
	return NewError(CodeInvalidRequest, CategoryProtocol, "Invalid Request: "+reason)
}

// MethodNotFound creates an error for an unknown method
func MethodNotFound(method string) MCPError {
	return NewError(CodeMethodNotFound, CategoryProtocol, fmt.Sprintf("Method not found: %s", method))
}

// NotInitialized creates an error for a request sent before the handshake
func NotInitialized(method string) MCPError {
	return NewError(CodeInvalidRequest, CategoryProtocol, fmt.Sprintf("Server not initialized: %s requires initialize first", method))
}

// CapabilityNotFound creates an error for a tool or prompt name that is not registered
func CapabilityNotFound(kind, name string) MCPError {
	return NewError(CodeInvalidParams, CategoryProtocol, fmt.Sprintf("Unknown %s: %s", kind, name)).
		WithData(&CapabilityErrorData{Kind: kind, Name: name})
}

// ResourceNotFound creates an error for a URI whose scheme nothing serves
func ResourceNotFound(uri string) MCPError {
	return NewError(CodeResourceNotFound, CategoryNotFound, fmt.Sprintf("Resource not found: %s", uri)).
		WithData(&CapabilityErrorData{Kind: "resource", URI: uri})
}

// TemplateNoMatch creates an error for a URI that a template's scheme claims
// but whose shape or placeholder values do not fit
func TemplateNoMatch(uri, template string) MCPError {
	return NewError(CodeInvalidParams, CategoryValidation, fmt.Sprintf("Resource URI %s does not match template %s", uri, template)).
		WithData(&CapabilityErrorData{Kind: "resource", URI: uri})
}

// DomainFailure creates an error for a business-rule failure reported by a handler.
// The message is sent to the client as written.
func DomainFailure(message string) MCPError {
	return NewError(CodeDomainFailure, CategoryDomain, message)
}

// InternalFault creates an error for an unexpected fault. The cause is kept
// for logs only.
func InternalFault(operation string, cause error) MCPError {
	return Wrap(cause, CodeInternalError, CategoryInternal, "Internal error").
		WithContext(&Context{Operation: operation, Timestamp: time.Now()})
}

// Timeout creates an error for a handler that exceeded its time budget
func Timeout(operation string, budget time.Duration) MCPError {
	return NewError(CodeRequestTimeout, CategoryTimeout, fmt.Sprintf("Request timed out after %s", budget)).
		WithData(&OperationErrorData{Operation: operation, Timeout: budget.String()})
}

// Cancelled creates an error for a request abandoned by the client or by shutdown
func Cancelled(reason string) MCPError {
	message := "Request cancelled"
	if reason != "" {
		message = fmt.Sprintf("Request cancelled: %s", reason)
	}
	return NewError(CodeRequestCancelled, CategoryCancelled, message).
		WithData(&OperationErrorData{Operation: "request", Reason: reason})
}
