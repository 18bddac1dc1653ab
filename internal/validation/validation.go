// Package validation binds and validates request payloads.
//
// Request structs declare rules with `validate` tags; failures are turned
// into a 400 errs.HTTPError whose field errors use the JSON field names.
package validation
