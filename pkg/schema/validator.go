package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
)

const resourceName = "shape.json"

// Validator checks raw argument objects against a compiled shape
type Validator struct {
	shape    Shape
	compiled *jsonschema.Schema
}

// NewValidator compiles the shape once. The returned validator is safe for
// concurrent use.
func NewValidator(shape Shape) (*Validator, error) {
	if err := shape.Check(); err != nil {
		return nil, err
	}

	doc, err := shape.JSONSchema()
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(resourceName, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	return &Validator{shape: shape, compiled: compiled}, nil
}

// Shape returns the shape the validator was built from
func (v *Validator) Shape() Shape {
	return v.shape
}

// Validate checks raw against the shape. An empty or null payload is an
// empty object. On success the arguments are returned with defaults applied;
// on failure the error is a *errors.ValidationFailure listing every field.
func (v *Validator) Validate(raw json.RawMessage) (Args, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return Args{}, mcperrors.InvalidParameter("", mcperrors.ConstraintType, err.Error())
	}

	var fields []mcperrors.FieldError
	for name := range obj {
		if _, ok := v.shape.Lookup(name); !ok {
			fields = append(fields, mcperrors.FieldError{
				Field:      name,
				Constraint: mcperrors.ConstraintUnknown,
				Message:    "is not a recognized argument",
			})
		}
	}
	for _, p := range v.shape {
		if val, ok := obj[p.Name]; p.Required && (!ok || val == nil) {
			fields = append(fields, mcperrors.FieldError{
				Field:      p.Name,
				Constraint: mcperrors.ConstraintRequired,
				Message:    "is required",
			})
		}
	}

	// Explicit nulls on optional params count as omitted.
	for name, val := range obj {
		if val == nil {
			delete(obj, name)
		}
	}

	if err := v.compiled.Validate(obj); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return Args{}, mcperrors.InternalFault("validate arguments", err)
		}
		fields = append(fields, leafFailures(ve)...)
	}

	if len(fields) > 0 {
		return Args{}, mcperrors.NewValidationFailure(dedupe(fields))
	}

	values := make(map[string]interface{}, len(v.shape))
	for _, p := range v.shape {
		val, ok := obj[p.Name]
		if !ok {
			if p.Default == nil {
				continue
			}
			val = p.Default
		}
		coerced, err := coerce(p.Type, val)
		if err != nil {
			return Args{}, mcperrors.InvalidParameter(p.Name, mcperrors.ConstraintType, err.Error())
		}
		values[p.Name] = coerced
	}

	return Args{values: values}, nil
}

func decodeObject(raw json.RawMessage) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]interface{}{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var decoded interface{}
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON")
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object")
	}
	return obj, nil
}

// leafFailures flattens a validation error tree into per-field failures.
// required and additionalProperties are reported by the pre-checks with
// better field names, so those keywords are skipped here.
func leafFailures(ve *jsonschema.ValidationError) []mcperrors.FieldError {
	if len(ve.Causes) > 0 {
		var out []mcperrors.FieldError
		for _, cause := range ve.Causes {
			out = append(out, leafFailures(cause)...)
		}
		return out
	}

	keyword := lastSegment(ve.KeywordLocation)
	switch keyword {
	case "required", "additionalProperties":
		return nil
	}

	return []mcperrors.FieldError{{
		Field:      firstSegment(ve.InstanceLocation),
		Constraint: mcperrors.Constraint(keyword),
		Message:    ve.Message,
	}}
}

func firstSegment(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if i := strings.IndexByte(pointer, '/'); i >= 0 {
		pointer = pointer[:i]
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(pointer)
}

func lastSegment(pointer string) string {
	if i := strings.LastIndexByte(pointer, '/'); i >= 0 {
		return pointer[i+1:]
	}
	return pointer
}

func dedupe(fields []mcperrors.FieldError) []mcperrors.FieldError {
	seen := make(map[mcperrors.FieldError]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
