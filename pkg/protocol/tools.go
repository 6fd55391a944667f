package protocol

import (
	"encoding/json"
)

// Tool represents a tool in the MCP protocol
type Tool struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsResult defines the response for listing tools
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams defines parameters for calling a tool
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult defines the response for tool calls. IsError is always
// serialized so a caller can tell domain failures from successes without
// inspecting content.
type CallToolResult struct {
	Content []Content      `json:"content"`
	IsError bool           `json:"isError"`
	Meta    map[string]any `json:"_meta,omitempty"`
}

// Category returns the error category tag attached to a failed result.
func (r *CallToolResult) Category() string {
	if r == nil || r.Meta == nil {
		return ""
	}
	c, _ := r.Meta[MetaCategory].(string)
	return c
}

// MetaCategory is the _meta key holding a failure's error category.
const MetaCategory = "category"
