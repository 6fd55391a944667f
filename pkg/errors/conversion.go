package errors

import (
	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
)

// ErrorData is the data member of every JSON-RPC error object the server emits
type ErrorData struct {
	Category Category    `json:"category"`
	Detail   interface{} `json:"detail,omitempty"`
}

// ToJSONRPCError converts any error to a JSON-RPC error object. Only the
// client-safe message is copied; causes stay in the error chain for logs.
// Errors outside the taxonomy become a generic internal error.
func ToJSONRPCError(err error) *protocol.Error {
	if err == nil {
		return nil
	}

	mcpErr, ok := AsMCPError(err)
	if !ok {
		return &protocol.Error{
			Code:    protocol.ErrorCode(CodeInternalError),
			Message: "Internal error",
			Data:    &ErrorData{Category: CategoryInternal},
		}
	}

	var data interface{}
	switch d := mcpErr.Data().(type) {
	case *ValidationData:
		data = d
	case nil:
		data = &ErrorData{Category: mcpErr.Category()}
	default:
		data = &ErrorData{Category: mcpErr.Category(), Detail: d}
	}

	return &protocol.Error{
		Code:    protocol.ErrorCode(mcpErr.Code()),
		Message: mcpErr.Message(),
		Data:    data,
	}
}

// ToCallToolResult converts a tool failure to an isError call result
// carrying the failure category in _meta
func ToCallToolResult(err error) *protocol.CallToolResult {
	category := CategoryOf(err)
	message := "Internal error"
	if mcpErr, ok := AsMCPError(err); ok {
		message = mcpErr.Message()
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{protocol.TextContent(message)},
		IsError: true,
		Meta:    map[string]any{protocol.MetaCategory: string(category)},
	}
}
