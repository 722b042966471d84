package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Generation is a handle to one in-progress write of a result sequence.
// Exclusively owned by the process that began it; the owner token is checked
// again at commit so a reaped generation cannot be committed by accident.
type Generation struct {
	id    int64
	owner string
	next  int64
}

// ID returns the generation's monotonically increasing id.
func (g *Generation) ID() int64 { return g.id }

// BeginGeneration allocates a new generation in 'writing' status. The prior
// complete generation's rows are untouched.
//
// At most one writing generation may exist per target (partial unique
// index). A live competing writer yields ErrContended. Writing generations
// older than staleAfter are presumed crashed and reaped first, so an
// abandoned lock can never wedge the target forever.
func (s *Store) BeginGeneration(ctx context.Context, schemaFP, depKey string, staleAfter time.Duration) (*Generation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin generation: begin tx: %w", err)
	}
	defer tx.Rollback()

	// RFC 3339 UTC timestamps compare lexicographically.
	cutoff := time.Now().UTC().Add(-staleAfter).Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
		UPDATE generations SET status = 'discarded'
		WHERE status = 'writing' AND created_at < ?
	`, cutoff); err != nil {
		return nil, fmt.Errorf("begin generation: reap stale: %w", err)
	}

	owner := uuid.Must(uuid.NewV7()).String()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO generations (schema_fp, dep_key, status, owner, created_at)
		VALUES (?, ?, 'writing', ?, ?)
	`, schemaFP, depKey, owner, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, ErrContended
		}
		return nil, fmt.Errorf("begin generation: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("begin generation: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("begin generation: commit: %w", err)
	}

	return &Generation{id: id, owner: owner}, nil
}

// AppendRow appends one encoded row to the in-progress generation. Rows are
// read back in exactly this order. May be called repeatedly as a producer
// yields results; nothing is buffered beyond the row being written.
func (s *Store) AppendRow(ctx context.Context, g *Generation, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_rows (generation_id, row_index, payload)
		VALUES (?, ?, ?)
	`, g.id, g.next, payload)
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	g.next++
	return nil
}

// Commit atomically marks the generation complete, swaps the metadata
// pointer onto it, and discards the prior generation. Rows of generations
// discarded before this commit are reclaimed; the just-superseded
// generation keeps its rows until the next commit so open read cursors over
// it stay valid.
//
// Returns ErrGenerationLost if the generation was reaped while writing.
func (s *Store) Commit(ctx context.Context, g *Generation, schemaFP, depKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit generation: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE generations SET status = 'complete'
		WHERE id = ? AND status = 'writing' AND owner = ?
	`, g.id, g.owner)
	if err != nil {
		return fmt.Errorf("commit generation: mark complete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit generation: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrGenerationLost
	}

	var prior sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT generation_id FROM meta WHERE id = 1`).Scan(&prior)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("commit generation: read prior: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (id, schema_fp, dep_key, generation_id)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET schema_fp = excluded.schema_fp,
			dep_key = excluded.dep_key, generation_id = excluded.generation_id
	`, schemaFP, depKey, g.id); err != nil {
		return fmt.Errorf("commit generation: swap meta: %w", err)
	}

	if prior.Valid && prior.Int64 != g.id {
		if _, err := tx.ExecContext(ctx, `
			UPDATE generations SET status = 'discarded' WHERE id = ?
		`, prior.Int64); err != nil {
			return fmt.Errorf("commit generation: discard prior: %w", err)
		}
	}

	// Opportunistic reclamation of generations discarded before this
	// commit. The one discarded just above survives one more cycle.
	keep := int64(-1)
	if prior.Valid {
		keep = prior.Int64
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cache_rows
		WHERE generation_id IN (
			SELECT id FROM generations WHERE status = 'discarded' AND id != ?
		)
	`, keep); err != nil {
		return fmt.Errorf("commit generation: reclaim rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM generations WHERE status = 'discarded' AND id != ?
	`, keep); err != nil {
		return fmt.Errorf("commit generation: reclaim generations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit generation: commit: %w", err)
	}
	return nil
}

// Abort marks the generation discarded and drops its rows without touching
// the metadata pointer. The prior complete generation, if any, remains the
// active read target.
func (s *Store) Abort(ctx context.Context, g *Generation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("abort generation: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE generations SET status = 'discarded'
		WHERE id = ? AND status = 'writing' AND owner = ?
	`, g.id, g.owner); err != nil {
		return fmt.Errorf("abort generation: mark discarded: %w", err)
	}

	// Never committed, so no reader can hold a cursor over these rows.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cache_rows WHERE generation_id = ?
	`, g.id); err != nil {
		return fmt.Errorf("abort generation: delete rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("abort generation: commit: %w", err)
	}
	return nil
}
