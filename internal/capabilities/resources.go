package capabilities

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
)

const (
	mimeMarkdown = "text/markdown"
	mimeJSON     = "application/json"
)

const readmeText = `# Example MCP Server

This is an example Model Context Protocol server built with Go.

## Features
- Resource sharing
- Tool execution
- Prompt templates
- Full MCP specification compliance

## Usage
Connect this server to any MCP-compatible client to start using its capabilities.
`

func readmeResource() registry.Resource {
	return registry.Resource{
		Name: "readme",
		Metadata: registry.Metadata{
			Title:       "README File",
			Description: "Project documentation and setup instructions",
			MIMEType:    mimeMarkdown,
		},
		URI: "file://README.md",
		Handler: func(ctx context.Context, uri string, _ registry.Bindings) ([]protocol.ResourceContents, error) {
			return []protocol.ResourceContents{{URI: uri, MIMEType: mimeMarkdown, Text: readmeText}}, nil
		},
	}
}

type userProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Created string `json:"created"`
	Status  string `json:"status"`
}

func userInfoResource(deps Deps) registry.Resource {
	return registry.Resource{
		Name: "user-info",
		Metadata: registry.Metadata{
			Title:       "User Profile",
			Description: "User profile information",
			MIMEType:    mimeJSON,
		},
		URITemplate: "user://{userId}/profile",
		Handler: func(ctx context.Context, uri string, b registry.Bindings) ([]protocol.ResourceContents, error) {
			id := b["userId"]
			profile := userProfile{
				ID:      id,
				Name:    "User " + id,
				Email:   fmt.Sprintf("user%s@example.com", id),
				Created: deps.Now().UTC().Format(time.RFC3339),
				Status:  "active",
			}
			text, err := json.MarshalIndent(profile, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("encode profile: %w", err)
			}
			return []protocol.ResourceContents{{URI: uri, MIMEType: mimeJSON, Text: string(text)}}, nil
		},
	}
}
