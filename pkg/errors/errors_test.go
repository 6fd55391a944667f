package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
)

func TestMCPErrorInterface(t *testing.T) {
	tests := []struct {
		name     string
		err      MCPError
		wantCode int
		wantCat  Category
		wantSev  Severity
	}{
		{
			name:     "parse error",
			err:      ParseError(fmt.Errorf("unexpected end of input")),
			wantCode: CodeParseError,
			wantCat:  CategoryProtocol,
			wantSev:  SeverityWarning,
		},
		{
			name:     "method not found",
			err:      MethodNotFound("tools/explode"),
			wantCode: CodeMethodNotFound,
			wantCat:  CategoryProtocol,
			wantSev:  SeverityWarning,
		},
		{
			name:     "resource not found",
			err:      ResourceNotFound("ftp://nowhere"),
			wantCode: CodeResourceNotFound,
			wantCat:  CategoryNotFound,
			wantSev:  SeverityWarning,
		},
		{
			name:     "template no match",
			err:      TemplateNoMatch("user:///profile", "user://{userId}/profile"),
			wantCode: CodeInvalidParams,
			wantCat:  CategoryValidation,
			wantSev:  SeverityWarning,
		},
		{
			name:     "domain failure",
			err:      DomainFailure("Error: Division by zero is not allowed"),
			wantCode: CodeDomainFailure,
			wantCat:  CategoryDomain,
			wantSev:  SeverityInfo,
		},
		{
			name:     "timeout",
			err:      Timeout("tools/call", time.Second),
			wantCode: CodeRequestTimeout,
			wantCat:  CategoryTimeout,
			wantSev:  SeverityWarning,
		},
		{
			name:     "cancelled",
			err:      Cancelled("client"),
			wantCode: CodeRequestCancelled,
			wantCat:  CategoryCancelled,
			wantSev:  SeverityInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code())
			assert.Equal(t, tt.wantCat, tt.err.Category())
			assert.Equal(t, tt.wantSev, tt.err.Severity())
			assert.NotEmpty(t, tt.err.Error())
			assert.NotNil(t, tt.err.Context())
		})
	}
}

func TestErrorChaining(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := InternalFault("open database", base)

	assert.True(t, errors.Is(wrapped, base))
	assert.Equal(t, "Internal error", wrapped.Message())
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.Equal(t, "open database", wrapped.Context().Operation)

	outer := fmt.Errorf("handler: %w", wrapped)
	got, ok := AsMCPError(outer)
	require.True(t, ok)
	assert.Equal(t, CategoryInternal, got.Category())
	assert.True(t, IsCategory(outer, CategoryInternal))
}

func TestCategoryOfPlainError(t *testing.T) {
	assert.Equal(t, CategoryInternal, CategoryOf(errors.New("boom")))
	assert.Equal(t, CategoryDomain, CategoryOf(DomainFailure("nope")))
}

func TestWithersDoNotMutate(t *testing.T) {
	orig := DomainFailure("first")

	withCtx := orig.WithContext(&Context{RequestID: "7", Method: "tools/call"})
	assert.Equal(t, "7", withCtx.Context().RequestID)
	assert.Empty(t, orig.Context().RequestID)

	withData := orig.WithData(map[string]int{"attempts": 3})
	assert.Equal(t, map[string]int{"attempts": 3}, withData.Data())
	assert.Nil(t, orig.Data())
	assert.Equal(t, "first", withData.Error())
}

func TestCategorySeverity(t *testing.T) {
	tests := map[Category]Severity{
		CategoryProtocol:   SeverityWarning,
		CategoryValidation: SeverityWarning,
		CategoryNotFound:   SeverityWarning,
		CategoryTimeout:    SeverityWarning,
		CategoryDomain:     SeverityInfo,
		CategoryCancelled:  SeverityInfo,
		CategoryInternal:   SeverityError,
		CategoryTransport:  SeverityError,
	}
	for cat, want := range tests {
		assert.Equal(t, want, cat.Severity(), cat)
	}
	assert.Equal(t, SeverityWarning, MissingParameter("x").Severity())
}

func TestMarshalOmitsCause(t *testing.T) {
	err := InternalFault("query", errors.New("secret dsn user:pw@tcp"))

	data, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), `"category":"internal"`)
}

func TestValidationFailureSortsFields(t *testing.T) {
	failure := NewValidationFailure([]FieldError{
		{Field: "operation", Constraint: ConstraintEnum, Message: "must be one of add, subtract, multiply, divide"},
		{Field: "a", Constraint: ConstraintRequired, Message: "is required"},
	})

	require.Len(t, failure.Fields, 2)
	assert.Equal(t, "a", failure.Fields[0].Field)
	assert.Equal(t, "operation", failure.Fields[1].Field)
	assert.Equal(t, CategoryValidation, failure.Category())
	assert.Equal(t, CodeInvalidParams, failure.Code())
	assert.Contains(t, failure.Message(), "a: is required")

	f, ok := failure.Field("operation")
	require.True(t, ok)
	assert.Equal(t, ConstraintEnum, f.Constraint)

	_, ok = failure.Field("b")
	assert.False(t, ok)

	var asMCP MCPError
	require.True(t, errors.As(error(failure), &asMCP))
	assert.Equal(t, CategoryValidation, asMCP.Category())
}

func TestMissingParameter(t *testing.T) {
	failure := MissingParameter("concept")
	require.Len(t, failure.Fields, 1)
	assert.Equal(t, "concept", failure.Fields[0].Field)
	assert.Equal(t, ConstraintRequired, failure.Fields[0].Constraint)
}

func TestToJSONRPCError(t *testing.T) {
	t.Run("plain error is generic internal", func(t *testing.T) {
		rpcErr := ToJSONRPCError(errors.New("stack trace here"))
		require.NotNil(t, rpcErr)
		assert.Equal(t, protocol.InternalError, rpcErr.Code)
		assert.Equal(t, "Internal error", rpcErr.Message)

		data, err := json.Marshal(rpcErr)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "stack trace")
		assert.Contains(t, string(data), `"category":"internal"`)
	})

	t.Run("validation failure carries fields", func(t *testing.T) {
		rpcErr := ToJSONRPCError(MissingParameter("code"))
		require.NotNil(t, rpcErr)
		assert.Equal(t, protocol.InvalidParams, rpcErr.Code)

		data, err := json.Marshal(rpcErr)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"code": -32602,
			"message": "Invalid arguments: code: is required",
			"data": {"category": "validation", "fields": [{"field": "code", "constraint": "required", "message": "is required"}]}
		}`, string(data))
	})

	t.Run("not found uses resource code", func(t *testing.T) {
		rpcErr := ToJSONRPCError(ResourceNotFound("ftp://x"))
		assert.Equal(t, protocol.ResourceNotFound, rpcErr.Code)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToJSONRPCError(nil))
	})
}

func TestToCallToolResult(t *testing.T) {
	result := ToCallToolResult(CapabilityNotFound("tool", "missing"))
	assert.True(t, result.IsError)
	assert.Equal(t, string(CategoryProtocol), result.Category())
	require.Len(t, result.Content, 1)
	assert.Equal(t, "Unknown tool: missing", result.Content[0].Text)

	result = ToCallToolResult(errors.New("raw"))
	assert.Equal(t, string(CategoryInternal), result.Category())
	assert.Equal(t, "Internal error", result.Content[0].Text)
}

func TestChannelError(t *testing.T) {
	err := ChannelError("read_input", errors.New("broken pipe"))
	assert.Equal(t, CategoryTransport, err.Category())
	assert.Equal(t, CodeTransportError, err.Code())
	assert.Equal(t, "Channel error during read_input: broken pipe", err.Error())
	assert.ErrorContains(t, err, "broken pipe")

	data, ok := err.Data().(*ChannelErrorData)
	require.True(t, ok)
	assert.Equal(t, "stdio", data.Channel)
	assert.Equal(t, "broken pipe", data.Reason)

	assert.NotPanics(t, func() { _ = ChannelError("send_message", nil) })

	tooLarge := MessageTooLarge(1024)
	assert.Equal(t, 1024, tooLarge.Data().(*ChannelErrorData).Limit)
	assert.Equal(t, "Message exceeds the 1024 byte limit", tooLarge.Message())
}
