package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
	"github.com/ajitpratap0/mcp-example-server/pkg/logging"
	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
)

// MetaSessionID is the initialize result _meta key carrying the session id
const MetaSessionID = "sessionId"

func (s *Server) handleInitialize(ctx context.Context, c *call) (any, error) {
	var params protocol.InitializeParams
	if err := decodeParams(c.req.Params, &params); err != nil {
		return nil, err
	}
	c.advance(stageValidated)

	s.initializedLock.Lock()
	if s.initialized {
		s.initializedLock.Unlock()
		return nil, mcperrors.InvalidRequest("session is already initialized")
	}
	s.initialized = true
	s.sessionID = uuid.NewString()
	sessionID := s.sessionID
	s.initializedLock.Unlock()

	client := "unknown"
	if params.ClientInfo != nil {
		client = params.ClientInfo.Name + " " + params.ClientInfo.Version
	}
	c.logger.Info("Initializing session",
		logging.String("client", client),
		logging.String("requested_revision", params.ProtocolVersion),
		logging.String("session_id", sessionID),
	)

	return &protocol.InitializeResult{
		ProtocolVersion: protocol.NegotiateRevision(params.ProtocolVersion),
		Capabilities: protocol.ServerCapabilities{
			Tools:     &protocol.ListChangedCapability{},
			Resources: &protocol.ResourcesCapability{},
			Prompts:   &protocol.ListChangedCapability{},
		},
		ServerInfo: protocol.Implementation{
			Name:    s.name,
			Version: s.version,
		},
		Instructions: s.instructions,
		Meta:         map[string]any{MetaSessionID: sessionID},
	}, nil
}

func (s *Server) handlePing(ctx context.Context, c *call) (any, error) {
	c.advance(stageValidated)
	return struct{}{}, nil
}

func (s *Server) handleListTools(ctx context.Context, c *call) (any, error) {
	c.advance(stageValidated)
	return &protocol.ListToolsResult{Tools: s.registry.Tools()}, nil
}

func (s *Server) handleListResources(ctx context.Context, c *call) (any, error) {
	c.advance(stageValidated)
	return &protocol.ListResourcesResult{Resources: s.registry.Resources()}, nil
}

func (s *Server) handleListResourceTemplates(ctx context.Context, c *call) (any, error) {
	c.advance(stageValidated)
	return &protocol.ListResourceTemplatesResult{ResourceTemplates: s.registry.Templates()}, nil
}

func (s *Server) handleListPrompts(ctx context.Context, c *call) (any, error) {
	c.advance(stageValidated)
	return &protocol.ListPromptsResult{Prompts: s.registry.Prompts()}, nil
}

// handleCallTool reports every failure as an isError result so the model
// on the other end can see it
func (s *Server) handleCallTool(ctx context.Context, c *call) (any, error) {
	var params protocol.CallToolParams
	if err := decodeParams(c.req.Params, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, mcperrors.MissingParameter("name")
	}

	entry, err := s.registry.Tool(params.Name)
	if err != nil {
		c.logger.Info("Unknown tool requested", logging.String("tool", params.Name))
		return mcperrors.ToCallToolResult(mcperrors.CapabilityNotFound(string(registry.KindTool), params.Name)), nil
	}
	c.capability(string(registry.KindTool), entry.Name)

	args, err := entry.Validator.Validate(params.Arguments)
	if err != nil {
		return mcperrors.ToCallToolResult(err), nil
	}
	c.advance(stageValidated)

	result, err := invoke(ctx, s, c, func(ctx context.Context) (*protocol.CallToolResult, error) {
		return entry.Handler(ctx, args)
	})
	switch {
	case err != nil:
		if mcperrors.CategoryOf(err) == mcperrors.CategoryInternal {
			c.logger.WithError(err).Error("Tool handler failed")
		}
		return mcperrors.ToCallToolResult(err), nil
	case result == nil:
		return mcperrors.ToCallToolResult(mcperrors.InternalFault("tool "+entry.Name, errors.New("handler returned no result"))), nil
	case result.IsError && result.Category() == "":
		if result.Meta == nil {
			result.Meta = map[string]any{}
		}
		result.Meta[protocol.MetaCategory] = string(mcperrors.CategoryDomain)
	}
	if result.Content == nil {
		result.Content = []protocol.Content{}
	}
	return result, nil
}

func (s *Server) handleReadResource(ctx context.Context, c *call) (any, error) {
	var params protocol.ReadResourceParams
	if err := decodeParams(c.req.Params, &params); err != nil {
		return nil, err
	}
	if params.URI == "" {
		return nil, mcperrors.MissingParameter("uri")
	}

	entry, bindings, err := s.registry.ResolveResource(params.URI)
	switch {
	case errors.Is(err, registry.ErrNoMatch):
		c.capability(string(registry.KindResource), entry.Name)
		return nil, mcperrors.TemplateNoMatch(params.URI, entry.URITemplate)
	case err != nil:
		return nil, mcperrors.ResourceNotFound(params.URI)
	}
	c.capability(string(registry.KindResource), entry.Name)
	c.advance(stageValidated)

	contents, err := invoke(ctx, s, c, func(ctx context.Context) ([]protocol.ResourceContents, error) {
		return entry.Handler(ctx, params.URI, bindings)
	})
	if err != nil {
		return nil, err
	}
	if contents == nil {
		contents = []protocol.ResourceContents{}
	}
	return &protocol.ReadResourceResult{Contents: contents}, nil
}

func (s *Server) handleGetPrompt(ctx context.Context, c *call) (any, error) {
	var params protocol.GetPromptParams
	if err := decodeParams(c.req.Params, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, mcperrors.MissingParameter("name")
	}

	entry, err := s.registry.Prompt(params.Name)
	if err != nil {
		return nil, mcperrors.CapabilityNotFound(string(registry.KindPrompt), params.Name)
	}
	c.capability(string(registry.KindPrompt), entry.Name)

	args, err := entry.Validator.Validate(params.Arguments)
	if err != nil {
		return nil, err
	}
	c.advance(stageValidated)

	result, err := invoke(ctx, s, c, func(ctx context.Context) (*protocol.GetPromptResult, error) {
		return entry.Handler(ctx, args)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, mcperrors.InternalFault("prompt "+entry.Name, errors.New("handler returned no result"))
	}
	if result.Messages == nil {
		result.Messages = []protocol.PromptMessage{}
	}
	return result, nil
}

func (s *Server) handleNotification(ctx context.Context, req *protocol.Request) {
	_, obs := s.observer.StartRequest(ctx, req.Method, "", false)
	defer obs.End("")

	switch req.Method {
	case protocol.MethodInitialized:
		s.logger.Info("Client finished initialization", logging.String("session_id", s.SessionID()))
	case protocol.MethodCancelled:
		var params protocol.CancelledParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.RequestID.IsNull() {
			s.logger.Warn("Ignoring malformed cancellation")
			return
		}
		reason := params.Reason
		if reason == "" {
			reason = "cancelled by client"
		}
		requestID := params.RequestID.String()
		if s.cancelRequest(params.RequestID.Key(), reason) {
			s.logger.Info("Cancelled request", logging.String("request_id", requestID), logging.String("reason", reason))
		} else {
			s.logger.Debug("Cancellation for request not in flight", logging.String("request_id", requestID))
		}
	default:
		s.logger.Debug("Ignoring notification", logging.String("method", req.Method))
	}
}
