// Package recall is a transparent, schema-aware result cache.
//
// A Cache persists the output of a deterministic computation keyed by a
// fingerprint of the computation's inputs (the dependency key) and a
// fingerprint of the output's declared shape. Repeated calls with unchanged
// inputs and shape replay stored results instead of recomputing; a change in
// either fingerprint invalidates the cache and recomputes.
//
//	cache, err := recall.New[Person]("/tmp/people.db")
//	if err != nil { ... }
//	defer cache.Close()
//
//	for p, err := range cache.Call(ctx, recall.Deps(src), fetchPeople(src)) {
//	    ...
//	}
//
// Results stream: during recomputation each produced value is written to a
// new storage generation and yielded to the caller in the same pass. The
// generation commits atomically only once the producer is exhausted;
// producer failure or abandoned consumption aborts it and the previous
// complete generation stays authoritative.
package recall
