// Package store persists cached result sequences for a single target.
//
// Each cached target owns one SQLite database. Results are grouped into
// generations: one complete, self-consistent write of a row sequence, tagged
// with a monotonically increasing id and a status (writing, complete,
// discarded). A single metadata row points at the active complete
// generation together with the fingerprint pair that produced it.
//
// Storage is schema-agnostic: row payloads are opaque bytes supplied by the
// codec. Crash-safety and reader isolation come from SQLite transactions in
// WAL mode - a reader always observes either the fully-committed previous
// generation or the fully-committed new one, never an interleaving.
package store
