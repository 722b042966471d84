package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a store backed by a temp database.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const (
	testSchemaFP = "schema-fp-aaaa"
	testDepKey   = "dep-key-bbbb"
)

// commitGeneration writes the given payloads as a complete generation.
func commitGeneration(t *testing.T, s *Store, payloads ...string) *Generation {
	t.Helper()
	ctx := context.Background()

	g, err := s.BeginGeneration(ctx, testSchemaFP, testDepKey, time.Hour)
	if err != nil {
		t.Fatalf("BeginGeneration() failed: %v", err)
	}
	for i, p := range payloads {
		if err := s.AppendRow(ctx, g, []byte(p)); err != nil {
			t.Fatalf("AppendRow(%d) failed: %v", i, err)
		}
	}
	if err := s.Commit(ctx, g, testSchemaFP, testDepKey); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return g
}

// countRows counts the cache_rows entries for one generation.
func countRows(t *testing.T, s *Store, generationID int64) int {
	t.Helper()
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM cache_rows WHERE generation_id = ?", generationID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count rows failed: %v", err)
	}
	return n
}

// readAll drains a generation's rows through a cursor.
func readAll(t *testing.T, s *Store, generationID int64) []string {
	t.Helper()
	cur, err := s.ReadRows(context.Background(), generationID)
	if err != nil {
		t.Fatalf("ReadRows() failed: %v", err)
	}
	defer cur.Close()

	var out []string
	for cur.Next() {
		out = append(out, string(cur.Bytes()))
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	return out
}
