package recall

import "github.com/roach88/recall/internal/shape"

// DepKey is an opaque, deterministically-derived value representing the
// inputs that determine a cached output. Equality of the stored and current
// key (together with the schema fingerprint) is the sole cache-hit
// criterion.
type DepKey string

// Deps derives a dependency key from the call's logical inputs using the
// default derivation: each input is canonically formatted in order,
// length-prefixed and hashed. Deterministic across runs for identical
// logical inputs.
func Deps(inputs ...any) DepKey {
	return DepKey(shape.DependencyKey(inputs...))
}

// RawDep wraps a caller-supplied key wholesale, replacing the default
// derivation. The caller is responsible for determinism: identical logical
// inputs must always map to the same key.
func RawDep(key string) DepKey {
	return DepKey(key)
}
