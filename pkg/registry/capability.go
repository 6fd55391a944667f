// Package registry holds the capabilities a server exposes.
//
// Capabilities come in three kinds: resources (read by URI, static or
// templated), tools (called with validated arguments) and prompts (rendered
// from validated arguments). They are registered once at startup; after
// Freeze the registry is read-only and safe for concurrent lookups.
package registry

import (
	"context"
	"fmt"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/schema"
)

// Kind tags a capability variant
type Kind string

const (
	KindResource Kind = "resource"
	KindTool     Kind = "tool"
	KindPrompt   Kind = "prompt"
)

// Metadata is the descriptive part of a capability shown in listings
type Metadata struct {
	Title       string
	Description string
	// MIMEType applies to resources only
	MIMEType string
}

// Bindings are the placeholder values extracted from a templated resource URI
type Bindings map[string]string

// ToolHandler runs a tool. A business-rule failure is reported either as a
// result with IsError set or as an error classified as CategoryDomain; any
// other error is an internal fault.
type ToolHandler func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error)

// ResourceHandler reads a resource. Bindings is nil for static resources.
type ResourceHandler func(ctx context.Context, uri string, bindings Bindings) ([]protocol.ResourceContents, error)

// PromptHandler renders a prompt
type PromptHandler func(ctx context.Context, args schema.Args) (*protocol.GetPromptResult, error)

// Capability is implemented by Tool, Resource and Prompt
type Capability interface {
	Kind() Kind
	CapabilityName() string
}

// Tool declares a callable tool
type Tool struct {
	Name string
	Metadata
	Input   schema.Shape
	Handler ToolHandler
}

func (t Tool) Kind() Kind             { return KindTool }
func (t Tool) CapabilityName() string { return t.Name }

// Resource declares a readable resource. Exactly one of URI and
// URITemplate is set.
type Resource struct {
	Name string
	Metadata
	URI         string
	URITemplate string
	Handler     ResourceHandler
}

func (r Resource) Kind() Kind             { return KindResource }
func (r Resource) CapabilityName() string { return r.Name }

// Prompt declares a prompt template. Every argument is a string.
type Prompt struct {
	Name string
	Metadata
	Arguments schema.Shape
	Handler   PromptHandler
}

func (p Prompt) Kind() Kind             { return KindPrompt }
func (p Prompt) CapabilityName() string { return p.Name }

// TextResult returns a successful tool result holding one text item
func TextResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{Content: []protocol.Content{protocol.TextContent(text)}}
}

// ErrorResult returns a tool result reporting a business-rule failure
func ErrorResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{protocol.TextContent(text)},
		IsError: true,
		Meta:    map[string]any{protocol.MetaCategory: string(mcperrors.CategoryDomain)},
	}
}

// ErrorResultf is ErrorResult with a formatted message
func ErrorResultf(format string, args ...interface{}) *protocol.CallToolResult {
	return ErrorResult(fmt.Sprintf(format, args...))
}
