package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(StringID("req-1"), MethodPing, nil)
	require.NoError(t, err)

	assert.Equal(t, JSONRPCVersion, req.JSONRPC)
	assert.Equal(t, "req-1", req.ID.String())
	assert.Empty(t, req.Params)

	req, err = NewRequest(NumberID(7), MethodCallTool, CallToolParams{Name: "calculate"})
	require.NoError(t, err)

	var params CallToolParams
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, "calculate", params.Name)
}

func TestIDRoundTripIsVerbatim(t *testing.T) {
	cases := []string{`1`, `"abc"`, `12345678901234567890`, `-3`}
	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			resp, err := NewResponse(ID(raw), map[string]string{"ok": "yes"})
			require.NoError(t, err)

			data, err := json.Marshal(resp)
			require.NoError(t, err)

			var generic map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &generic))
			assert.Equal(t, raw, string(generic["id"]))
		})
	}
}

func TestIDKey(t *testing.T) {
	assert.NotEqual(t, ID(`"7"`).Key(), ID(`7`).Key())
	assert.Equal(t, ID(`"7"`).String(), ID(`7`).String())
	assert.Equal(t, ID(`"7"`).Key(), ID(`"\u0037"`).Key())
	assert.Equal(t, StringID("req-1").Key(), ID(`"req-1"`).Key())
	assert.Equal(t, "null", ID(nil).Key())
	assert.Equal(t, NullID.Key(), ID(nil).Key())
}

func TestNewErrorResponseUsesNullID(t *testing.T) {
	resp := NewErrorResponse(nil, &Error{Code: ParseError, Message: "Parse error"})

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`, string(data))
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode ErrorCode
		wantID   string
		method   string
	}{
		{name: "valid request", input: `{"jsonrpc":"2.0","id":1,"method":"ping"}`, wantID: "1", method: "ping"},
		{name: "notification", input: `{"jsonrpc":"2.0","method":"notifications/initialized"}`, wantID: "null", method: "notifications/initialized"},
		{name: "not json", input: `{"jsonrpc":`, wantCode: ParseError},
		{name: "array", input: `[1,2]`, wantCode: InvalidRequest},
		{name: "json null", input: `null`, wantCode: InvalidRequest},
		{name: "wrong version", input: `{"jsonrpc":"1.0","id":2,"method":"ping"}`, wantCode: InvalidRequest, wantID: "2"},
		{name: "missing method", input: `{"jsonrpc":"2.0","id":"x"}`, wantCode: InvalidRequest, wantID: "x"},
		{name: "object id", input: `{"jsonrpc":"2.0","id":{},"method":"ping"}`, wantCode: InvalidRequest, wantID: "null"},
		{name: "scalar params", input: `{"jsonrpc":"2.0","id":3,"method":"ping","params":5}`, wantCode: InvalidRequest, wantID: "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rpcErr := DecodeRequest([]byte(tt.input))
			if tt.wantCode != 0 {
				require.NotNil(t, rpcErr)
				assert.Equal(t, tt.wantCode, rpcErr.Code)
				if tt.wantID != "" {
					require.NotNil(t, req)
					assert.Equal(t, tt.wantID, req.ID.String())
				}
				return
			}
			require.Nil(t, rpcErr)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.wantID, req.ID.String())
		})
	}
}

func TestNegotiateRevision(t *testing.T) {
	assert.Equal(t, "2024-11-05", NegotiateRevision("2024-11-05"))
	assert.Equal(t, ProtocolRevision, NegotiateRevision("1999-01-01"))
	assert.Equal(t, ProtocolRevision, NegotiateRevision(""))
}

func TestCallToolResultSerializesIsError(t *testing.T) {
	data, err := json.Marshal(CallToolResult{Content: []Content{TextContent("ok")}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"ok"}],"isError":false}`, string(data))

	failed := &CallToolResult{IsError: true, Meta: map[string]any{MetaCategory: "domain"}}
	assert.Equal(t, "domain", failed.Category())
}
