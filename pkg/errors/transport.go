package errors

import "fmt"

// ChannelErrorData describes a failed read or write on the protocol channel
type ChannelErrorData struct {
	Channel   string `json:"channel"`
	Operation string `json:"operation,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// ChannelError classifies a stdio channel failure during operation
func ChannelError(operation string, cause error) MCPError {
	data := &ChannelErrorData{Channel: "stdio", Operation: operation}
	if cause != nil {
		data.Reason = cause.Error()
	}
	return Wrap(cause, CodeTransportError, CategoryTransport, "Channel error during "+operation).WithData(data)
}

// MessageTooLarge creates an error for an inbound frame above limit bytes
func MessageTooLarge(limit int) MCPError {
	return NewError(CodeTransportError, CategoryTransport, fmt.Sprintf("Message exceeds the %d byte limit", limit)).
		WithData(&ChannelErrorData{Channel: "stdio", Operation: "read_input", Limit: limit})
}
