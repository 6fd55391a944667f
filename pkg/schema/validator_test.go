package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
)

var calcShape = Shape{
	{Name: "operation", Type: TypeString, Required: true, Enum: []string{"add", "subtract", "multiply", "divide"}},
	{Name: "a", Type: TypeNumber, Required: true, Description: "First number"},
	{Name: "b", Type: TypeNumber, Required: true, Description: "Second number"},
}

var dataShape = Shape{
	{Name: "type", Type: TypeString, Required: true, Enum: []string{"user", "product", "order"}},
	{Name: "count", Type: TypeInteger, Default: 1, Minimum: Bound(1), Maximum: Bound(10)},
	{Name: "verbose", Type: TypeBoolean},
}

func mustValidator(t *testing.T, shape Shape) *Validator {
	t.Helper()
	v, err := NewValidator(shape)
	require.NoError(t, err)
	return v
}

func validationFailure(t *testing.T, err error) *mcperrors.ValidationFailure {
	t.Helper()
	require.Error(t, err)
	var failure *mcperrors.ValidationFailure
	require.True(t, errors.As(err, &failure), "expected validation failure, got %T", err)
	return failure
}

func TestShapeJSONSchema(t *testing.T) {
	doc, err := calcShape.JSONSchema()
	require.NoError(t, err)

	var parsed struct {
		Type                 string                     `json:"type"`
		Properties           map[string]json.RawMessage `json:"properties"`
		Required             []string                   `json:"required"`
		AdditionalProperties *bool                      `json:"additionalProperties"`
	}
	require.NoError(t, json.Unmarshal(doc, &parsed))

	assert.Equal(t, "object", parsed.Type)
	assert.Equal(t, []string{"operation", "a", "b"}, parsed.Required)
	require.NotNil(t, parsed.AdditionalProperties)
	assert.False(t, *parsed.AdditionalProperties)
	assert.Len(t, parsed.Properties, 3)

	text := string(doc)
	assert.Less(t, strings.Index(text, `"operation"`), strings.Index(text, `"a"`), "properties keep declared order")
	assert.Contains(t, text, `"enum":["add","subtract","multiply","divide"]`)
}

func TestShapeJSONSchemaBoundsAndDefaults(t *testing.T) {
	doc, err := dataShape.JSONSchema()
	require.NoError(t, err)

	var parsed struct {
		Properties map[string]map[string]interface{} `json:"properties"`
		Required   []string                          `json:"required"`
	}
	require.NoError(t, json.Unmarshal(doc, &parsed))

	count := parsed.Properties["count"]
	assert.Equal(t, "integer", count["type"])
	assert.Equal(t, float64(1), count["minimum"])
	assert.Equal(t, float64(10), count["maximum"])
	assert.Equal(t, float64(1), count["default"])
	assert.Equal(t, []string{"type"}, parsed.Required)
}

func TestShapeCheck(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
	}{
		{"empty name", Shape{{Type: TypeString}}},
		{"duplicate", Shape{{Name: "a", Type: TypeString}, {Name: "a", Type: TypeString}}},
		{"bad type", Shape{{Name: "a", Type: "date"}}},
		{"enum on number", Shape{{Name: "a", Type: TypeNumber, Enum: []string{"1"}}}},
		{"default on required", Shape{{Name: "a", Type: TypeString, Required: true, Default: "x"}}},
		{"string default on integer", Shape{{Name: "a", Type: TypeInteger, Default: "ten"}}},
		{"fractional default on integer", Shape{{Name: "a", Type: TypeInteger, Default: 1.5}}},
		{"number default on boolean", Shape{{Name: "a", Type: TypeBoolean, Default: 1}}},
		{"default outside enum", Shape{{Name: "a", Type: TypeString, Enum: []string{"x", "y"}, Default: "z"}}},
		{"default below minimum", Shape{{Name: "a", Type: TypeInteger, Minimum: Bound(1), Default: 0}}},
		{"default above maximum", Shape{{Name: "a", Type: TypeNumber, Maximum: Bound(10), Default: 10.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.shape.Check())
			_, err := NewValidator(tt.shape)
			assert.Error(t, err)
		})
	}
}

func TestShapeCheckAcceptsValidDefaults(t *testing.T) {
	shape := Shape{
		{Name: "count", Type: TypeInteger, Minimum: Bound(1), Maximum: Bound(10), Default: 10},
		{Name: "ratio", Type: TypeNumber, Minimum: Bound(0), Default: 0.5},
		{Name: "whole", Type: TypeInteger, Default: 3.0},
		{Name: "mode", Type: TypeString, Enum: []string{"fast", "slow"}, Default: "slow"},
		{Name: "verbose", Type: TypeBoolean, Default: false},
	}
	require.NoError(t, shape.Check())
}

func TestValidateAccepts(t *testing.T) {
	v := mustValidator(t, calcShape)

	args, err := v.Validate(json.RawMessage(`{"operation":"divide","a":10,"b":4}`))
	require.NoError(t, err)
	assert.Equal(t, "divide", args.String("operation"))
	assert.Equal(t, 10.0, args.Number("a"))
	assert.Equal(t, 4.0, args.Number("b"))
}

func TestValidateMissingRequiredNamesEveryField(t *testing.T) {
	v := mustValidator(t, calcShape)

	_, err := v.Validate(json.RawMessage(`{"operation":"add"}`))
	failure := validationFailure(t, err)

	require.Len(t, failure.Fields, 2)
	assert.Equal(t, "a", failure.Fields[0].Field)
	assert.Equal(t, mcperrors.ConstraintRequired, failure.Fields[0].Constraint)
	assert.Equal(t, "b", failure.Fields[1].Field)
	assert.Contains(t, failure.Message(), "a: is required")
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name       string
		shape      Shape
		input      string
		field      string
		constraint mcperrors.Constraint
	}{
		{"enum", calcShape, `{"operation":"modulo","a":1,"b":2}`, "operation", mcperrors.ConstraintEnum},
		{"type", calcShape, `{"operation":"add","a":"one","b":2}`, "a", mcperrors.ConstraintType},
		{"unknown field", calcShape, `{"operation":"add","a":1,"b":2,"c":3}`, "c", mcperrors.ConstraintUnknown},
		{"null required", calcShape, `{"operation":"add","a":null,"b":2}`, "a", mcperrors.ConstraintRequired},
		{"below minimum", dataShape, `{"type":"user","count":0}`, "count", mcperrors.ConstraintMinimum},
		{"above maximum", dataShape, `{"type":"user","count":11}`, "count", mcperrors.ConstraintMaximum},
		{"fractional integer", dataShape, `{"type":"user","count":2.5}`, "count", mcperrors.ConstraintType},
		{"boolean type", dataShape, `{"type":"user","verbose":"yes"}`, "verbose", mcperrors.ConstraintType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustValidator(t, tt.shape)
			_, err := v.Validate(json.RawMessage(tt.input))
			failure := validationFailure(t, err)

			f, ok := failure.Field(tt.field)
			require.True(t, ok, "field %q not reported in %v", tt.field, failure.Fields)
			assert.Equal(t, tt.constraint, f.Constraint)
			assert.NotEmpty(t, f.Message)
		})
	}
}

func TestValidateNonObject(t *testing.T) {
	v := mustValidator(t, dataShape)

	for _, input := range []string{`[1,2]`, `"user"`, `42`, `{"type":`} {
		t.Run(input, func(t *testing.T) {
			_, err := v.Validate(json.RawMessage(input))
			failure := validationFailure(t, err)
			require.Len(t, failure.Fields, 1)
			assert.Equal(t, "", failure.Fields[0].Field)
		})
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	v := mustValidator(t, dataShape)

	args, err := v.Validate(json.RawMessage(`{"type":"order"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, args.Int("count"))
	assert.True(t, args.Has("count"))
	assert.False(t, args.Has("verbose"))

	args, err = v.Validate(json.RawMessage(`{"type":"order","count":null}`))
	require.NoError(t, err)
	assert.Equal(t, 1, args.Int("count"))

	args, err = v.Validate(json.RawMessage(`{"type":"order","count":7,"verbose":true}`))
	require.NoError(t, err)
	assert.Equal(t, 7, args.Int("count"))
	assert.True(t, args.Bool("verbose"))
}

func TestValidateEmptyPayload(t *testing.T) {
	optional := Shape{{Name: "audience", Type: TypeString, Default: "intermediate"}}
	v := mustValidator(t, optional)

	for _, raw := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(` `), json.RawMessage(`{}`)} {
		args, err := v.Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, "intermediate", args.String("audience"))
	}

	_, err := mustValidator(t, calcShape).Validate(nil)
	failure := validationFailure(t, err)
	assert.Len(t, failure.Fields, 3)
}

func TestArgsAccessors(t *testing.T) {
	args := NewArgs(map[string]interface{}{"n": int64(3), "f": 1.5, "s": "x", "b": true})

	assert.Equal(t, 3, args.Int("n"))
	assert.Equal(t, 3.0, args.Number("n"))
	assert.Equal(t, 1.5, args.Number("f"))
	assert.Equal(t, "x", args.String("s"))
	assert.True(t, args.Bool("b"))
	assert.Equal(t, "", args.String("missing"))
	assert.Equal(t, map[string]string{"n": "3", "f": "1.5", "s": "x", "b": "true"}, args.Strings())

	m := args.Map()
	m["s"] = "changed"
	assert.Equal(t, "x", args.String("s"))
}
