package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recall/internal/store"
)

// execute runs the root command with the given args and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// seedCache commits one generation with the given payload rows and leaves a
// discarded generation behind so gc has something to reclaim.
func seedCache(t *testing.T, path string, rows ...string) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	commit := func(payloads []string) {
		g, err := s.BeginGeneration(ctx, "fp-schema", "fp-dep", time.Hour)
		require.NoError(t, err)
		for _, p := range payloads {
			require.NoError(t, s.AppendRow(ctx, g, []byte(p)))
		}
		require.NoError(t, s.Commit(ctx, g, "fp-schema", "fp-dep"))
	}
	commit([]string{"stale-row"})
	commit(rows)
}

func TestRoot_RejectsInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--format", "xml", "inspect", filepath.Join(dir, "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInspect_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	seedCache(t, path, "a", "b", "c")

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "schema fingerprint: fp-schema")
	assert.Contains(t, out, "dependency key:     fp-dep")
	assert.Contains(t, out, "(3 rows)")
}

func TestInspect_TextEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No committed generation.")
}

func TestInspect_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	seedCache(t, path, "a", "b")

	out, err := execute(t, "--format", "json", "inspect", path)
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Cached)
	assert.Equal(t, "fp-schema", report.SchemaFingerprint)
	assert.Equal(t, "fp-dep", report.DependencyKey)
	assert.Equal(t, int64(2), report.ActiveRows)
	assert.Equal(t, int64(1), report.Discarded)
}

func TestClear_RemovesDatabasesAndSidecars(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "a.db-wal", "a.db-shm", "b.db", "keep.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	out, err := execute(t, "clear", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 cache database(s).")

	for _, name := range []string{"a.db", "a.db-wal", "a.db-shm", "b.db"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), "%s should be gone", name)
	}
	_, err = os.Stat(filepath.Join(dir, "keep.txt"))
	assert.NoError(t, err, "non-cache files stay")
}

func TestGC_ReclaimsAcrossDatabases(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, filepath.Join(dir, "one.db"), "x")
	seedCache(t, filepath.Join(dir, "two.db"), "y", "z")

	// Each database carries one discarded single-row generation.
	out, err := execute(t, "gc", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Reclaimed 2 row(s) across 2 database(s).")
}

func TestGC_VerboseListsDatabases(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, filepath.Join(dir, "one.db"), "x")

	out, err := execute(t, "--verbose", "gc", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "one.db: reclaimed 1 row(s)")
}

func TestGC_EmptyDirectory(t *testing.T) {
	out, err := execute(t, "gc", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "across 0 database(s).")
}
