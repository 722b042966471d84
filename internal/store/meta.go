package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Entry is the persisted unit per cached target: the latest complete
// generation and the fingerprint pair it was written under. Mutated only
// through the atomic generation swap in Commit, never in place mid-read.
type Entry struct {
	SchemaFingerprint string
	DependencyKey     string
	GenerationID      int64
}

// ReadMetadata returns the current cache entry, or nil when the target has
// never committed a generation. The join on status guarantees a reader never
// observes an entry pointing at a generation that is not complete.
func (s *Store) ReadMetadata(ctx context.Context) (*Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx, `
		SELECT m.schema_fp, m.dep_key, m.generation_id
		FROM meta m
		JOIN generations g ON g.id = m.generation_id AND g.status = 'complete'
		WHERE m.id = 1
	`).Scan(&e.SchemaFingerprint, &e.DependencyKey, &e.GenerationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return &e, nil
}

// Info summarizes the target's storage state for maintenance tooling.
type Info struct {
	Entry       *Entry
	ActiveRows  int64
	Generations int64
	Discarded   int64
}

// ReadInfo returns metadata plus generation statistics.
func (s *Store) ReadInfo(ctx context.Context) (Info, error) {
	entry, err := s.ReadMetadata(ctx)
	if err != nil {
		return Info{}, err
	}
	info := Info{Entry: entry}

	if entry != nil {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM cache_rows WHERE generation_id = ?`, entry.GenerationID,
		).Scan(&info.ActiveRows); err != nil {
			return Info{}, fmt.Errorf("read info: count rows: %w", err)
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&info.Generations); err != nil {
		return Info{}, fmt.Errorf("read info: count generations: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generations WHERE status = 'discarded'`,
	).Scan(&info.Discarded); err != nil {
		return Info{}, fmt.Errorf("read info: count discarded: %w", err)
	}

	return info, nil
}
