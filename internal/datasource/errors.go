package datasource

import (
	"errors"
	"fmt"
)

// Errors returned by data sources. Absence is never an error: reads leave
// missing keys out of the result and deletes count only what existed.
var (
	// ErrInvalidKeySpecification indicates a malformed key spec.
	ErrInvalidKeySpecification = errors.New("invalid key specification")

	// ErrUnsupportedOperation indicates the source does not implement an entity kind or operation.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrBackendUnavailable indicates a remote store could not be reached. It is not retried.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrGraphNotFound indicates a node or edge was created in a graph that does not exist.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrUnknownSourceType indicates a configuration names a type with no registered opener.
	ErrUnknownSourceType = errors.New("unknown data source type")
)

// Unsupported returns an ErrUnsupportedOperation naming the source kind and operation.
func Unsupported(kind, op string) error {
	return fmt.Errorf("%w: %s source does not support %s", ErrUnsupportedOperation, kind, op)
}

// Unavailable wraps a connection failure as ErrBackendUnavailable.
func Unavailable(kind string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, kind, err)
}
