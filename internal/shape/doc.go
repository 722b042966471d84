// Package shape compiles Go types into canonical schema trees and
// fingerprints them.
//
// A Node is a finite, cycle-free description of a data shape: primitives,
// optionals, unions, sequences and records. Structurally identical shapes
// always produce the same fingerprint; reordering record fields or union
// variants changes it. That sensitivity is contractual - the fingerprint is
// the cache invalidation key, and a reordered schema is a different schema.
package shape
