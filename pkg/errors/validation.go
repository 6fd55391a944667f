package errors

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Constraint names the rule a field violated
type Constraint string

const (
	ConstraintRequired    Constraint = "required"
	ConstraintType        Constraint = "type"
	ConstraintEnum        Constraint = "enum"
	ConstraintMinimum     Constraint = "minimum"
	ConstraintMaximum     Constraint = "maximum"
	ConstraintUnknown     Constraint = "additionalProperties"
	ConstraintFormat      Constraint = "format"
	ConstraintPlaceholder Constraint = "placeholder"
)

// FieldError describes one field-level validation failure
type FieldError struct {
	Field      string     `json:"field"`
	Constraint Constraint `json:"constraint"`
	Message    string     `json:"message"`
}

// String returns a one-line rendering of the field error
func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// ValidationData is the structured data attached to a validation failure
type ValidationData struct {
	Category Category     `json:"category"`
	Fields   []FieldError `json:"fields"`
}

// ValidationFailure is returned by the schema validator. It lists every
// offending field, sorted by field name then constraint.
type ValidationFailure struct {
	classified
	Fields []FieldError
}

// NewValidationFailure builds a validation failure from field errors
func NewValidationFailure(fields []FieldError) *ValidationFailure {
	sorted := make([]FieldError, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Field != sorted[j].Field {
			return sorted[i].Field < sorted[j].Field
		}
		return sorted[i].Constraint < sorted[j].Constraint
	})

	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		parts = append(parts, f.String())
	}

	return &ValidationFailure{
		classified: classified{
			code:     CodeInvalidParams,
			message:  "Invalid arguments: " + strings.Join(parts, "; "),
			category: CategoryValidation,
			data:     &ValidationData{Category: CategoryValidation, Fields: sorted},
			context:  &Context{Timestamp: time.Now()},
		},
		Fields: sorted,
	}
}

// Field returns the first failure for the named field, if any
func (v *ValidationFailure) Field(name string) (FieldError, bool) {
	for _, f := range v.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldError{}, false
}

// MissingParameter creates a validation failure for a missing required field
func MissingParameter(param string) *ValidationFailure {
	return NewValidationFailure([]FieldError{{
		Field:      param,
		Constraint: ConstraintRequired,
		Message:    "is required",
	}})
}

// InvalidParameter creates a validation failure for a field with a bad value
func InvalidParameter(param string, constraint Constraint, message string) *ValidationFailure {
	return NewValidationFailure([]FieldError{{
		Field:      param,
		Constraint: constraint,
		Message:    message,
	}})
}
