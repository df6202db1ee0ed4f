package entitymap

import "errors"

var (
	// ErrInvalidEntity is returned when a type cannot be mapped to a
	// collection: unnamed types, non-struct types, or nil pointers.
	ErrInvalidEntity = errors.New("entity must be a named struct or pointer to struct")

	// ErrMissingID is returned by Update when the encoded entity carries no
	// identity field to filter on.
	ErrMissingID = errors.New("entity has no identity field")

	// ErrClosed is returned when operating on a closed mapper.
	ErrClosed = errors.New("mapper is closed")
)
