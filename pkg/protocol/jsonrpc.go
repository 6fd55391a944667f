package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// JSONRPCVersion is the supported JSON-RPC version
	JSONRPCVersion = "2.0"
)

// ErrorCode represents standard JSON-RPC 2.0 error codes
type ErrorCode int

// Standard error codes as per JSON-RPC 2.0 specification
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

// MCP-specific error codes
const (
	// ResourceNotFound indicates a requested resource was not found
	ResourceNotFound ErrorCode = -32002
	// RequestTimeout indicates the handler did not finish within its time budget
	RequestTimeout ErrorCode = -32001
	// RequestCancelled indicates the request was cancelled by the client
	RequestCancelled ErrorCode = -32800
)

// ID is an opaque JSON-RPC request identifier. It holds the raw JSON
// (string or number) so it is echoed back byte for byte.
type ID json.RawMessage

// NullID is the identifier used when the request id could not be read.
var NullID = ID("null")

// StringID returns an ID holding a JSON string.
func StringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID(b)
}

// NumberID returns an ID holding a JSON number.
func NumberID(n int64) ID {
	return ID(fmt.Sprintf("%d", n))
}

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool {
	return len(id) == 0
}

// IsNull reports whether the id is absent or JSON null.
func (id ID) IsNull() bool {
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

// String returns a printable form of the id for logs. A string id and a
// number with the same digits print alike, so String is not a key.
func (id ID) String() string {
	if id.IsNull() {
		return "null"
	}
	var s string
	if err := json.Unmarshal(id, &s); err == nil {
		return s
	}
	return string(id)
}

// Key identifies the id for lookups. String ids keep their quotes so "7"
// and 7 stay distinct, and escapes are normalized so "\u0037" equals "7".
func (id ID) Key() string {
	if id.IsNull() {
		return "null"
	}
	if id[0] == '"' {
		var s string
		if err := json.Unmarshal(id, &s); err == nil {
			b, _ := json.Marshal(s)
			return string(b)
		}
	}
	return string(id)
}

// Valid reports whether the id is a JSON string or number.
func (id ID) Valid() bool {
	if len(id) == 0 {
		return false
	}
	switch id[0] {
	case '"':
		var s string
		return json.Unmarshal(id, &s) == nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		return json.Unmarshal(id, &n) == nil
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	if len(id) == 0 {
		return []byte("null"), nil
	}
	return id, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	*id = append((*id)[:0], bytes.TrimSpace(data)...)
	return nil
}

// JSONRPCMessage represents a JSON-RPC 2.0 message
type JSONRPCMessage struct {
	JSONRPC string `json:"jsonrpc"`
}

// Request represents a JSON-RPC 2.0 request
type Request struct {
	JSONRPCMessage
	ID     ID              `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id and so expects no response.
func (r *Request) IsNotification() bool {
	return r.ID.IsZero()
}

// NewRequest creates a new JSON-RPC 2.0 request
func NewRequest(id ID, method string, params interface{}) (*Request, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
	}

	return &Request{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// Response represents a JSON-RPC 2.0 response
type Response struct {
	JSONRPCMessage
	ID     ID              `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// NewResponse creates a new JSON-RPC 2.0 success response
func NewResponse(id ID, result interface{}) (*Response, error) {
	resultJSON := json.RawMessage("{}")
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Result:         resultJSON,
	}, nil
}

// NewErrorResponse creates a new JSON-RPC 2.0 error response
func NewErrorResponse(id ID, rpcErr *Error) *Response {
	if id.IsZero() {
		id = NullID
	}
	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Error:          rpcErr,
	}
}

// Error represents a JSON-RPC 2.0 error object
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// DecodeRequest parses one framed message into a request. It returns a
// parse error for invalid JSON and an invalid-request error for a JSON
// value that is not a well-formed request envelope. The id is returned
// whenever it could be read so the caller can still correlate the error.
func DecodeRequest(data []byte) (*Request, *Error) {
	if !json.Valid(data) {
		return nil, &Error{Code: ParseError, Message: "Parse error"}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, &Error{Code: InvalidRequest, Message: "Invalid Request: message must be a JSON object"}
	}

	req := &Request{}
	if idRaw, ok := raw["id"]; ok {
		req.ID = ID(bytes.TrimSpace(idRaw))
	}

	if v, ok := raw["jsonrpc"]; !ok || string(bytes.TrimSpace(v)) != `"`+JSONRPCVersion+`"` {
		return req, &Error{Code: InvalidRequest, Message: "Invalid Request: jsonrpc must be \"2.0\""}
	}
	req.JSONRPC = JSONRPCVersion

	if !req.ID.IsZero() && !req.ID.Valid() {
		id := req.ID
		req.ID = NullID
		return req, &Error{Code: InvalidRequest, Message: fmt.Sprintf("Invalid Request: id %s must be a string or number", string(id))}
	}

	methodRaw, ok := raw["method"]
	if !ok {
		return req, &Error{Code: InvalidRequest, Message: "Invalid Request: method is required"}
	}
	if err := json.Unmarshal(methodRaw, &req.Method); err != nil || req.Method == "" {
		return req, &Error{Code: InvalidRequest, Message: "Invalid Request: method must be a non-empty string"}
	}

	if params, ok := raw["params"]; ok {
		trimmed := bytes.TrimSpace(params)
		if len(trimmed) > 0 && trimmed[0] != '{' && trimmed[0] != '[' && !bytes.Equal(trimmed, []byte("null")) {
			return req, &Error{Code: InvalidRequest, Message: "Invalid Request: params must be an object or array"}
		}
		req.Params = trimmed
	}

	return req, nil
}
