// Package validate binds and validates request input declared per location.
//
// A route declares up to one schema per location (body, path, query) as a Go
// struct type. Bind decodes each declared location in the fixed order body,
// path, query; coerces strings to the field types; applies defaults; checks
// validator tags; and stores the typed result in the request context. The
// first failure stops processing and is returned as a *domain.ValidationError
// naming the field.
//
// Struct fields are addressed by their mapstructure tag. Constraints use
// go-playground/validator tags. An `example` tag feeds generated API metadata.
package validate
