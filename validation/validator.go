package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/runkit/errors"
)

// FieldError is one failed check, reported by field path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates field errors. Validators returned by At share the
// error list of their parent and prefix every field they report.
type Validator struct {
	prefix string
	errs   *[]FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{errs: new([]FieldError)}
}

// At returns a validator that reports fields below path, for example
// v.At("steps[1]").AddError("key", ...) reports "steps[1].key".
func (v *Validator) At(path string) *Validator {
	return &Validator{prefix: v.field(path), errs: v.errs}
}

func (v *Validator) field(name string) string {
	switch {
	case v.prefix == "":
		return name
	case name == "":
		return v.prefix
	case strings.HasPrefix(name, "["):
		return v.prefix + name
	default:
		return v.prefix + "." + name
	}
}

// AddError records message against field. An empty field reports the
// validator's own path.
func (v *Validator) AddError(field, message string) *Validator {
	*v.errs = append(*v.errs, FieldError{Field: v.field(field), Message: message})
	return v
}

// HasErrors reports whether any check failed, across every scoped validator.
func (v *Validator) HasErrors() bool {
	return len(*v.errs) > 0
}

// Errors returns a copy of the recorded errors in the order they were added.
func (v *Validator) Errors() []FieldError {
	return append([]FieldError(nil), *v.errs...)
}

// Required fails when value is empty or blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// OptionalUUID fails when value is set but is not a UUID.
func (v *Validator) OptionalUUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	if _, err := uuid.Parse(value); err != nil {
		v.AddError(field, "must be a valid UUID")
	}
	return v
}

// Custom fails with message when ok is false.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// Validate returns nil when every check passed. Otherwise it returns an
// INVALID_INPUT AppError listing each failure, with the field errors
// under the "fields" detail.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}

	fields := v.Errors()
	parts := make([]string, len(fields))
	for i, e := range fields {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", fields)
}
