package protocol

// Resource represents a static resource in the MCP protocol
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate describes a family of resources addressed by an RFC 6570 URI template
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ListResourcesResult defines the response for listing resources
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ListResourceTemplatesResult defines the response for listing resource templates
type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
}

// ReadResourceParams defines parameters for reading a resource
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ResourceContents contains the text content of a resource
type ResourceContents struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// ReadResourceResult defines the response for reading a resource
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}
