package protocol

// ContentType tags a content block
type ContentType string

const (
	// ContentTypeText is a plain text block
	ContentTypeText ContentType = "text"
)

// Content is a single content block in a tool result or prompt message
type Content struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text"`
	MIMEType string      `json:"mimeType,omitempty"`
}

// TextContent returns a text content block
func TextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}
