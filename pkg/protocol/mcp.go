package protocol

import "encoding/json"

const (
	// ProtocolRevision is the newest protocol revision this server speaks
	ProtocolRevision = "2025-06-18"

	// Methods for lifecycle management
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"

	// Methods for server features
	MethodListTools             = "tools/list"
	MethodCallTool              = "tools/call"
	MethodListResources         = "resources/list"
	MethodListResourceTemplates = "resources/templates/list"
	MethodReadResource          = "resources/read"
	MethodListPrompts           = "prompts/list"
	MethodGetPrompt             = "prompts/get"

	// Methods for utilities
	MethodCancelled = "notifications/cancelled"
)

// SupportedProtocolRevisions lists the revisions accepted during initialize,
// newest first.
var SupportedProtocolRevisions = []string{
	ProtocolRevision,
	"2025-03-26",
	"2024-11-05",
}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ClientInfo      *Implementation `json:"clientInfo,omitempty"`
}

// Implementation names a client or server program
type Implementation struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
}

// ServerCapabilities advertises the feature groups this server implements
type ServerCapabilities struct {
	Tools     *ListChangedCapability `json:"tools,omitempty"`
	Resources *ResourcesCapability   `json:"resources,omitempty"`
	Prompts   *ListChangedCapability `json:"prompts,omitempty"`
}

// ListChangedCapability is the capability object for tools and prompts
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ResourcesCapability is the capability object for resources
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
	Meta            map[string]any     `json:"_meta,omitempty"`
}

// CancelledParams is sent by the client to abandon an in-flight request
type CancelledParams struct {
	RequestID ID     `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

// NegotiateRevision returns the revision the server answers with for a
// client-requested revision.
func NegotiateRevision(requested string) string {
	for _, rev := range SupportedProtocolRevisions {
		if rev == requested {
			return rev
		}
	}
	return ProtocolRevision
}
