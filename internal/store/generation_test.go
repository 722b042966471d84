package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestGeneration_WriteReadCycle(t *testing.T) {
	s := createTestStore(t)
	g := commitGeneration(t, s, "row-0", "row-1", "row-2")

	got := readAll(t, s, g.ID())
	want := []string{"row-0", "row-1", "row-2"}
	if len(got) != len(want) {
		t.Fatalf("read %d rows, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, expected %q", i, got[i], want[i])
		}
	}
}

func TestGeneration_SecondWriterContended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open() a failed: %v", err)
	}
	defer a.Close()
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open() b failed: %v", err)
	}
	defer b.Close()

	ga, err := a.BeginGeneration(ctx, testSchemaFP, testDepKey, time.Hour)
	if err != nil {
		t.Fatalf("first BeginGeneration() failed: %v", err)
	}

	_, err = b.BeginGeneration(ctx, testSchemaFP, testDepKey, time.Hour)
	if !errors.Is(err, ErrContended) {
		t.Fatalf("second BeginGeneration() error = %v, expected ErrContended", err)
	}

	// The first writer is unaffected and can still commit.
	if err := a.AppendRow(ctx, ga, []byte("r")); err != nil {
		t.Fatalf("AppendRow() failed: %v", err)
	}
	if err := a.Commit(ctx, ga, testSchemaFP, testDepKey); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	// With the writer gone, the slot frees up.
	gb, err := b.BeginGeneration(ctx, testSchemaFP, testDepKey, time.Hour)
	if err != nil {
		t.Fatalf("BeginGeneration() after commit failed: %v", err)
	}
	if err := b.Abort(ctx, gb); err != nil {
		t.Fatalf("Abort() failed: %v", err)
	}
}

func TestGeneration_AbortLeavesPriorActive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	g1 := commitGeneration(t, s, "keep-0", "keep-1")

	g2, err := s.BeginGeneration(ctx, testSchemaFP, "other-dep", time.Hour)
	if err != nil {
		t.Fatalf("BeginGeneration() failed: %v", err)
	}
	if err := s.AppendRow(ctx, g2, []byte("doomed")); err != nil {
		t.Fatalf("AppendRow() failed: %v", err)
	}
	if err := s.Abort(ctx, g2); err != nil {
		t.Fatalf("Abort() failed: %v", err)
	}

	entry, err := s.ReadMetadata(ctx)
	if err != nil {
		t.Fatalf("ReadMetadata() failed: %v", err)
	}
	if entry == nil || entry.GenerationID != g1.ID() {
		t.Fatalf("metadata = %+v, expected generation %d", entry, g1.ID())
	}
	if n := countRows(t, s, g2.ID()); n != 0 {
		t.Errorf("aborted generation rows = %d, expected 0", n)
	}
	got := readAll(t, s, g1.ID())
	if len(got) != 2 {
		t.Errorf("prior generation rows = %d, expected 2", len(got))
	}
}

func TestGeneration_StaleWriterReaped(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	stale, err := s.BeginGeneration(ctx, testSchemaFP, testDepKey, time.Hour)
	if err != nil {
		t.Fatalf("BeginGeneration() failed: %v", err)
	}

	// Backdate the writer past the staleness cutoff, as if its process
	// crashed two hours ago.
	backdated := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339Nano)
	if _, err := s.db.Exec(
		"UPDATE generations SET created_at = ? WHERE id = ?", backdated, stale.ID(),
	); err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	fresh, err := s.BeginGeneration(ctx, testSchemaFP, testDepKey, time.Hour)
	if err != nil {
		t.Fatalf("BeginGeneration() after reap failed: %v", err)
	}

	// The reaped handle cannot commit over the fresh writer.
	err = s.Commit(ctx, stale, testSchemaFP, testDepKey)
	if !errors.Is(err, ErrGenerationLost) {
		t.Fatalf("stale Commit() error = %v, expected ErrGenerationLost", err)
	}

	if err := s.Commit(ctx, fresh, testSchemaFP, testDepKey); err != nil {
		t.Fatalf("fresh Commit() failed: %v", err)
	}
}

func TestGeneration_FreshWriterNotReaped(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	g, err := s.BeginGeneration(ctx, testSchemaFP, testDepKey, time.Hour)
	if err != nil {
		t.Fatalf("BeginGeneration() failed: %v", err)
	}

	if _, err := s.BeginGeneration(ctx, testSchemaFP, testDepKey, time.Hour); !errors.Is(err, ErrContended) {
		t.Fatalf("expected ErrContended against a live writer, got %v", err)
	}

	if err := s.Commit(ctx, g, testSchemaFP, testDepKey); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
}

func TestGeneration_DeferredReclamation(t *testing.T) {
	s := createTestStore(t)
	g1 := commitGeneration(t, s, "a", "b")
	g2 := commitGeneration(t, s, "c")

	// g1 was just superseded: discarded, but its rows survive one cycle so
	// cursors opened before the swap can finish.
	if n := countRows(t, s, g1.ID()); n != 2 {
		t.Errorf("just-superseded rows = %d, expected 2", n)
	}

	commitGeneration(t, s, "d")

	// The next commit reclaims g1 for real; g2 gets the grace cycle now.
	if n := countRows(t, s, g1.ID()); n != 0 {
		t.Errorf("rows after second supersede = %d, expected 0", n)
	}
	if n := countRows(t, s, g2.ID()); n != 1 {
		t.Errorf("g2 rows = %d, expected 1", n)
	}
}

func TestGeneration_CommitSwapsMetadataAtomically(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	commitGeneration(t, s, "old")

	g, err := s.BeginGeneration(ctx, "new-schema-fp", "new-dep", time.Hour)
	if err != nil {
		t.Fatalf("BeginGeneration() failed: %v", err)
	}
	if err := s.AppendRow(ctx, g, []byte("new")); err != nil {
		t.Fatalf("AppendRow() failed: %v", err)
	}

	// Until commit, readers still see the old entry.
	entry, err := s.ReadMetadata(ctx)
	if err != nil {
		t.Fatalf("ReadMetadata() failed: %v", err)
	}
	if entry.SchemaFingerprint != testSchemaFP {
		t.Fatalf("pre-commit schema fingerprint = %q, expected %q", entry.SchemaFingerprint, testSchemaFP)
	}

	if err := s.Commit(ctx, g, "new-schema-fp", "new-dep"); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	entry, err = s.ReadMetadata(ctx)
	if err != nil {
		t.Fatalf("ReadMetadata() failed: %v", err)
	}
	if entry.SchemaFingerprint != "new-schema-fp" || entry.DependencyKey != "new-dep" {
		t.Errorf("post-commit entry = %+v, expected new fingerprints", entry)
	}
	if entry.GenerationID != g.ID() {
		t.Errorf("post-commit generation = %d, expected %d", entry.GenerationID, g.ID())
	}
}
