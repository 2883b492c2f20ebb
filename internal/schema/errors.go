package schema

import "errors"

var (
	// ErrInvalidSchemaKind is returned when normalizing a schema that is not object-typed.
	ErrInvalidSchemaKind = errors.New("schema type must be object")
	// ErrSchemaNotFound is returned when a definition is absent from the document.
	ErrSchemaNotFound = errors.New("schema definition not found")
)
