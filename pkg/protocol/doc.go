// Package protocol defines the wire types of the Model Context Protocol as
// spoken by this server.
//
// Every message is a JSON-RPC 2.0 object framed as a single line. The
// package covers three groups of types:
//
//   - jsonrpc.go: the request/response envelope, opaque request ids and
//     the JSON-RPC error object, plus DecodeRequest which classifies a
//     raw frame as a request, a notification, or a protocol fault.
//   - mcp.go: method names, the initialize handshake and revision
//     negotiation, and the cancellation notification.
//   - tools.go, resources.go, prompts.go, content.go: listing and call
//     payloads for the three capability kinds.
//
// # Error signalling
//
// Tool calls report failures inside a successful JSON-RPC response with
// CallToolResult.IsError set, tagging the failure category in _meta.
// Resource reads and prompt renders have no such field and report
// failures as JSON-RPC error objects whose data carries the category.
package protocol
