package recall

import (
	"errors"

	"github.com/roach88/recall/internal/codec"
	"github.com/roach88/recall/internal/shape"
	"github.com/roach88/recall/internal/store"
)

// CachedError is the decoded form of a cached failure value: an error that
// a computation legitimately returned as its result. It comes back from
// replay as data and is never re-raised by the cache itself.
type CachedError = codec.CachedError

// IsUnsupportedShape reports whether construction failed because the
// declared output shape cannot be modeled.
func IsUnsupportedShape(err error) bool {
	return shape.IsUnsupported(err)
}

// IsSchemaCycle reports whether construction failed on a self-referential
// shape.
func IsSchemaCycle(err error) bool {
	return shape.IsCycle(err)
}

// IsEncodeError reports whether a produced value violated its declared
// shape during recomputation.
func IsEncodeError(err error) bool {
	return codec.IsEncodeError(err)
}

// IsDecodeError reports whether a stored payload failed to decode. Callers
// normally never see this: the controller treats it as a cache miss and
// recomputes. It surfaces only in strict-mode storage paths.
func IsDecodeError(err error) bool {
	return codec.IsDecodeError(err)
}

// IsContended reports whether a competing writer held the cache target.
// Surfaced only in strict mode; the default policy degrades to uncached
// execution.
func IsContended(err error) bool {
	return errors.Is(err, store.ErrContended)
}
