package codec

import (
	"errors"
	"fmt"
)

// EncodeError reports a runtime value that does not conform to its declared
// shape. This is a contract violation by the computation being cached, not
// a cache fault, and always surfaces to the caller.
type EncodeError struct {
	// Path locates the offending value within the shape tree.
	Path string

	// Message describes the violation.
	Message string
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("encode: %s", e.Message)
	}
	return fmt.Sprintf("encode %s: %s", e.Path, e.Message)
}

// DecodeError reports a stored payload that fails to parse under the
// declared shape. Callers treat it as a corrupted or incompatible cache
// and fall back to recomputation.
type DecodeError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode: %s", e.Message)
	}
	return fmt.Sprintf("decode %s: %s", e.Path, e.Message)
}

// IsDecodeError returns true if the error is a DecodeError.
// Uses errors.As to handle wrapped errors.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsEncodeError returns true if the error is an EncodeError.
// Uses errors.As to handle wrapped errors.
func IsEncodeError(err error) bool {
	var ee *EncodeError
	return errors.As(err, &ee)
}

func encodeErrf(path, format string, args ...any) *EncodeError {
	return &EncodeError{Path: path, Message: fmt.Sprintf(format, args...)}
}

func decodeErrf(path, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Message: fmt.Sprintf(format, args...)}
}
