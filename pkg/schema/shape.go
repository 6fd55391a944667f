// Package schema declares the argument shapes of capabilities and validates
// incoming arguments against them.
//
// A Shape is an ordered list of parameters. It renders to a JSON Schema
// object document for listings and compiles into a Validator that turns a
// raw argument object into typed Args, or into a ValidationFailure naming
// every offending field.
package schema

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Type is the JSON type of a parameter
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
)

// Param declares one named argument
type Param struct {
	Name        string
	Type        Type
	Description string
	Required    bool
	// Default is applied when an optional parameter is omitted
	Default interface{}
	Enum    []string
	Minimum *float64
	Maximum *float64
}

// Shape is the ordered argument declaration of a capability
type Shape []Param

// Bound returns a pointer to v, for Param.Minimum and Param.Maximum
func Bound(v float64) *float64 {
	return &v
}

// Lookup returns the parameter with the given name
func (s Shape) Lookup(name string) (Param, bool) {
	for _, p := range s {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Check reports declaration mistakes: empty or repeated names, unknown
// types, enums on non-string params, defaults on required params and
// defaults the param itself would reject.
func (s Shape) Check() error {
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if p.Name == "" {
			return fmt.Errorf("parameter with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("parameter %q declared twice", p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case TypeString, TypeNumber, TypeInteger, TypeBoolean:
		default:
			return fmt.Errorf("parameter %q has unknown type %q", p.Name, p.Type)
		}
		if len(p.Enum) > 0 && p.Type != TypeString {
			return fmt.Errorf("parameter %q: enum is only supported on strings", p.Name)
		}
		if p.Required && p.Default != nil {
			return fmt.Errorf("parameter %q: required parameters take no default", p.Name)
		}
		if p.Default != nil {
			if err := p.checkDefault(); err != nil {
				return fmt.Errorf("parameter %q: default %v: %w", p.Name, p.Default, err)
			}
		}
	}
	return nil
}

func (p Param) checkDefault() error {
	val, err := coerce(p.Type, p.Default)
	if err != nil {
		return err
	}

	if s, ok := val.(string); ok && len(p.Enum) > 0 && !slices.Contains(p.Enum, s) {
		return fmt.Errorf("not one of %v", p.Enum)
	}
	if p.Type == TypeNumber || p.Type == TypeInteger {
		f, _ := toFloat(val)
		if p.Minimum != nil && f < *p.Minimum {
			return fmt.Errorf("below minimum %v", *p.Minimum)
		}
		if p.Maximum != nil && f > *p.Maximum {
			return fmt.Errorf("above maximum %v", *p.Maximum)
		}
	}
	return nil
}

// Schema renders the shape as a JSON Schema object. Properties keep their
// declared order and unknown properties are not allowed.
func (s Shape) Schema() *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	var required []string

	for _, p := range s {
		prop := &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
			Default:     p.Default,
		}
		for _, e := range p.Enum {
			prop.Enum = append(prop.Enum, e)
		}
		if p.Minimum != nil {
			prop.Minimum = number(*p.Minimum)
		}
		if p.Maximum != nil {
			prop.Maximum = number(*p.Maximum)
		}
		props.Set(p.Name, prop)

		if p.Required {
			required = append(required, p.Name)
		}
	}

	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// JSONSchema returns the rendered schema document
func (s Shape) JSONSchema() (json.RawMessage, error) {
	data, err := json.Marshal(s.Schema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

func number(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}
