// Package validation checks chain definitions, requests and configuration.
//
// It supports struct tag validation (using the validator library) and
// programmatic validation with error collection. Both report an
// INVALID_INPUT AppError listing every failing field.
//
// # Struct Tag Validation
//
//	type BatchRequest struct {
//	    Inputs []any `json:"inputs" validate:"required,min=1"`
//	}
//	err := validation.Validate(req)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Custom(kinds == 1, "steps[0]", "must set exactly one node kind")
//	err := v.Validate()
package validation
