package shape

import (
	"errors"
	"fmt"
	"reflect"
)

// UnsupportedError reports a Go type that cannot be mapped to any Node.
// It is fatal at cache construction time and never retried.
type UnsupportedError struct {
	// Type is the offending Go type.
	Type reflect.Type

	// Reason explains why the type cannot be modeled.
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported shape %s: %s", e.Type, e.Reason)
}

// CycleError reports a self-referential type. Recursive shapes would need
// an infinite schema tree, so they are rejected rather than truncated.
type CycleError struct {
	// Type is the type that, directly or transitively, contains itself.
	Type reflect.Type
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("schema cycle: %s refers to itself", e.Type)
}

// IsUnsupported returns true if the error is an UnsupportedError.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// IsCycle returns true if the error is a CycleError.
// Uses errors.As to handle wrapped errors.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}
