package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Cursor is a lazy, ordered read of one generation's rows. Multiple cursors
// over the same generation are independent; each call to ReadRows produces a
// fresh sequence from the start.
type Cursor struct {
	rows    *sql.Rows
	payload []byte
	err     error
}

// ReadRows opens a cursor over the rows of a generation, in the exact order
// they were appended.
func (s *Store) ReadRows(ctx context.Context, generationID int64) (*Cursor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM cache_rows
		WHERE generation_id = ?
		ORDER BY row_index ASC
	`, generationID)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return &Cursor{rows: rows}, nil
}

// Next advances to the next row. Returns false at the end of the sequence
// or on error; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	if err := c.rows.Scan(&c.payload); err != nil {
		c.err = fmt.Errorf("scan row: %w", err)
		return false
	}
	return true
}

// Bytes returns the current row's payload. Valid until the next call to
// Next.
func (c *Cursor) Bytes() []byte {
	return c.payload
}

// Err returns the first error encountered during iteration.
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	return nil
}

// Close releases the cursor. Safe to call multiple times.
func (c *Cursor) Close() error {
	return c.rows.Close()
}
