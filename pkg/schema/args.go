package schema

import (
	"encoding/json"
	"fmt"
	"math"
)

// Args holds validated arguments. Values are normalized per declared type:
// string, float64 for number, int64 for integer and bool for boolean.
type Args struct {
	values map[string]interface{}
}

// NewArgs builds Args from already validated values, mainly for tests and
// handlers invoking each other.
func NewArgs(values map[string]interface{}) Args {
	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Args{values: copied}
}

// Has reports whether the argument was supplied or defaulted
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// String returns a string argument, or "" when absent
func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Number returns a number argument, or 0 when absent
func (a Args) Number(name string) float64 {
	switch v := a.values[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Int returns an integer argument, or 0 when absent
func (a Args) Int(name string) int {
	switch v := a.values[name].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns a boolean argument, or false when absent
func (a Args) Bool(name string) bool {
	b, _ := a.values[name].(bool)
	return b
}

// Map returns a copy of all arguments
func (a Args) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Strings returns every argument rendered as a string, as prompt templates
// consume them
func (a Args) Strings() map[string]string {
	out := make(map[string]string, len(a.values))
	for k, v := range a.values {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func coerce(t Type, val interface{}) (interface{}, error) {
	switch t {
	case TypeString:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected string")
		}
		return s, nil
	case TypeBoolean:
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean")
		}
		return b, nil
	case TypeNumber:
		return toFloat(val)
	case TypeInteger:
		f, err := toFloat(val)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("expected integer")
		}
		return int64(f), nil
	default:
		return nil, fmt.Errorf("unsupported type %q", t)
	}
}

func toFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number")
	}
}
