package recall

import (
	"context"
	"errors"
	"iter"
	"reflect"
	"sync"
	"time"

	"github.com/roach88/recall/internal/codec"
	"github.com/roach88/recall/internal/shape"
	"github.com/roach88/recall/internal/store"
)

// Cache is a handle to one cached target: a declared output shape bound to
// a storage location. Safe for concurrent use.
type Cache[T any] struct {
	path string
	opts Options
	node shape.Node
	fp   shape.Fingerprint

	mu sync.Mutex
	st *store.Store
}

// New builds a cache handle for the output shape T stored at path. The
// shape is compiled and fingerprinted once, here; unmodelable or
// self-referential shapes fail construction and are never retried.
func New[T any](path string, opts ...Option) (*Cache[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	for dt := range o.dates {
		if err := codec.CheckDateType(dt); err != nil {
			return nil, err
		}
	}

	node, err := shape.Compile(reflect.TypeFor[T](), shape.Options{
		Unions: o.unions,
		Dates:  o.dates,
	})
	if err != nil {
		return nil, err
	}
	fp, err := shape.FingerprintNode(node)
	if err != nil {
		return nil, err
	}

	return &Cache[T]{path: path, opts: o, node: node, fp: fp}, nil
}

// SchemaFingerprint returns the fingerprint of the compiled output shape.
func (c *Cache[T]) SchemaFingerprint() string {
	return string(c.fp)
}

// Close releases the underlying storage, if it was ever opened.
func (c *Cache[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return nil
	}
	err := c.st.Close()
	c.st = nil
	return err
}

// store opens the target's database lazily and caches it on the handle.
func (c *Cache[T]) store() (*store.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st != nil {
		return c.st, nil
	}
	st, err := store.Open(c.path)
	if err != nil {
		return nil, err
	}
	c.st = st
	return st, nil
}

// Call returns a lazy result sequence for the given dependency key. When
// the stored fingerprint pair matches, stored rows replay through the codec
// and the producer never runs. Otherwise the producer runs exactly once and
// its results are teed: appended to a new generation and yielded to the
// caller in the same order. The generation commits only when the producer
// is exhausted; failure or abandoned consumption aborts it, leaving the
// previous complete generation authoritative.
//
// The producer is a single-pass sequence and is only ranged on a miss.
func (c *Cache[T]) Call(ctx context.Context, dep DepKey, producer iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if !c.opts.Enabled {
			c.direct(producer, 0, yield)
			return
		}

		st, err := c.store()
		if err != nil {
			c.degrade(err, "cache storage unavailable", producer, 0, yield)
			return
		}

		entry, err := st.ReadMetadata(ctx)
		if err != nil {
			c.degrade(err, "cache metadata unreadable", producer, 0, yield)
			return
		}

		if entry != nil && entry.SchemaFingerprint == string(c.fp) && entry.DependencyKey == string(dep) {
			c.opts.Logger.Debug("cache hit, replaying", "path", c.path, "generation", entry.GenerationID)
			c.replay(ctx, st, entry.GenerationID, dep, producer, yield)
			return
		}

		c.opts.Logger.Debug("cache miss, recomputing", "path", c.path)
		c.recompute(ctx, st, dep, producer, 0, yield)
	}
}

// direct streams the producer without touching storage, discarding the
// first skip results.
func (c *Cache[T]) direct(producer iter.Seq2[T, error], skip int, yield func(T, error) bool) {
	n := 0
	for v, err := range producer {
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		if n >= skip {
			if !yield(v, nil) {
				return
			}
		}
		n++
	}
}

// degrade applies the availability policy: strict mode propagates the
// error, otherwise the call behaves as if caching were absent.
func (c *Cache[T]) degrade(err error, msg string, producer iter.Seq2[T, error], skip int, yield func(T, error) bool) {
	if c.opts.Strict {
		var zero T
		yield(zero, err)
		return
	}
	c.opts.Logger.Warn(msg+", running uncached", "path", c.path, "error", err)
	c.direct(producer, skip, yield)
}

// replay decodes stored rows lazily. A row that fails to decode marks the
// cache corrupted or incompatible: replay stops and the call recomputes,
// skipping the results already yielded (sound because cached computations
// are deterministic).
func (c *Cache[T]) replay(ctx context.Context, st *store.Store, generationID int64, dep DepKey, producer iter.Seq2[T, error], yield func(T, error) bool) {
	cur, err := st.ReadRows(ctx, generationID)
	if err != nil {
		c.degrade(err, "cache rows unreadable", producer, 0, yield)
		return
	}

	n := 0
	for cur.Next() {
		v, err := c.decodeRow(cur.Bytes())
		if err != nil {
			cur.Close()
			c.opts.Logger.Warn("cached row failed to decode, recomputing",
				"path", c.path, "generation", generationID, "row", n, "error", err)
			c.recompute(ctx, st, dep, producer, n, yield)
			return
		}
		if !yield(v, nil) {
			cur.Close()
			return
		}
		n++
	}
	err = cur.Err()
	cur.Close()
	if err != nil {
		c.degrade(err, "cache read failed mid-replay", producer, n, yield)
	}
}

func (c *Cache[T]) decodeRow(payload []byte) (T, error) {
	var zero T
	neutral, err := codec.Unmarshal(payload)
	if err != nil {
		return zero, &codec.DecodeError{Message: err.Error()}
	}
	decoded, err := codec.Decode(neutral, c.node)
	if err != nil {
		return zero, err
	}
	v, ok := decoded.(T)
	if !ok {
		return zero, &codec.DecodeError{Message: "decoded value has unexpected dynamic type"}
	}
	return v, nil
}

// recompute runs the producer, teeing each result into a new generation and
// to the caller. skip suppresses yielding of the first skip results (used
// when a failed replay already delivered them); every result is still
// written, so the committed generation is always complete.
func (c *Cache[T]) recompute(ctx context.Context, st *store.Store, dep DepKey, producer iter.Seq2[T, error], skip int, yield func(T, error) bool) {
	gen, err := c.beginGeneration(ctx, st, dep)
	if err != nil {
		if errors.Is(err, store.ErrContended) {
			c.degrade(err, "competing writer holds the cache", producer, skip, yield)
			return
		}
		c.degrade(err, "cannot begin cache generation", producer, skip, yield)
		return
	}

	caching := true
	committed := false
	defer func() {
		if caching && !committed {
			// Cleanup must run even when the surrounding context is done.
			if aerr := st.Abort(context.WithoutCancel(ctx), gen); aerr != nil {
				c.opts.Logger.Warn("failed to abort cache generation", "path", c.path, "error", aerr)
			}
		}
	}()

	var zero T
	n := 0
	for v, perr := range producer {
		if perr != nil {
			// Producer failure: no partial-result caching, ever.
			yield(zero, perr)
			return
		}
		if caching {
			payload, err := c.encodeRow(v)
			if err != nil {
				// The computation produced a value its declared shape
				// cannot represent. Contract violation, never swallowed.
				yield(zero, err)
				return
			}
			if err := st.AppendRow(ctx, gen, payload); err != nil {
				if c.opts.Strict {
					yield(zero, err)
					return
				}
				c.opts.Logger.Warn("cache write failed, streaming uncached", "path", c.path, "error", err)
				if aerr := st.Abort(context.WithoutCancel(ctx), gen); aerr != nil {
					c.opts.Logger.Warn("failed to abort cache generation", "path", c.path, "error", aerr)
				}
				caching = false
			}
		}
		if n >= skip {
			if !yield(v, nil) {
				// Abandoned consumption aborts via the deferred cleanup;
				// a partially-written generation is never mistaken for
				// complete.
				return
			}
		}
		n++
	}

	if !caching {
		return
	}
	if err := st.Commit(ctx, gen, string(c.fp), string(dep)); err != nil {
		if c.opts.Strict {
			yield(zero, err)
			return
		}
		c.opts.Logger.Warn("cache commit failed", "path", c.path, "error", err)
		return
	}
	committed = true
	c.opts.Logger.Debug("cache generation committed",
		"path", c.path, "generation", gen.ID(), "rows", n)
}

func (c *Cache[T]) encodeRow(v T) ([]byte, error) {
	neutral, err := codec.Encode(v, c.node)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(neutral)
}

// beginGeneration begins a new generation, waiting up to LockWait for a
// competing writer before giving up with ErrContended.
func (c *Cache[T]) beginGeneration(ctx context.Context, st *store.Store, dep DepKey) (*store.Generation, error) {
	gen, err := st.BeginGeneration(ctx, string(c.fp), string(dep), c.opts.StaleWriterAfter)
	if err == nil || !errors.Is(err, store.ErrContended) || c.opts.LockWait <= 0 {
		return gen, err
	}

	deadline := time.Now().Add(c.opts.LockWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		gen, err = st.BeginGeneration(ctx, string(c.fp), string(dep), c.opts.StaleWriterAfter)
		if err == nil || !errors.Is(err, store.ErrContended) {
			return gen, err
		}
	}
	return nil, store.ErrContended
}
