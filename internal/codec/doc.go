// Package codec encodes Go values into a neutral tree representation
// against a compiled schema, and decodes the inverse.
//
// The neutral representation (null, bool, integer, float, string, list,
// string-keyed map) serializes to compact JSON bytes; that byte payload is
// what the storage engine persists, opaquely. Non-finite floats encode as
// sentinel strings so the payload stays JSON-safe.
package codec
