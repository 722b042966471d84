package recall

import (
	"context"
	"fmt"
	"iter"
)

// One caches a scalar computation as a one-row sequence. The producer runs
// only on a miss; a hit decodes the single stored row.
func (c *Cache[T]) One(ctx context.Context, dep DepKey, produce func(context.Context) (T, error)) (T, error) {
	seq := func(yield func(T, error) bool) {
		yield(produce(ctx))
	}

	var out T
	found := false
	// Consume fully so the generation commits; breaking early would abort.
	for v, err := range c.Call(ctx, dep, seq) {
		if err != nil {
			return out, err
		}
		if !found {
			out = v
			found = true
		}
	}
	if !found {
		return out, fmt.Errorf("recall: cached scalar produced no result")
	}
	return out, nil
}

// Collect drains a result sequence into a slice, stopping at the first
// error. Mostly a convenience for callers and tests; note that collecting
// forfeits streaming.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
