package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRestoreExportWipe(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	backup := writeFile(t, dir, "backup.json", `{"games":[{"id":"a","title":"Alpha"},{"id":"b","title":"Beta"}]}`)

	out, err := run(t, "restore", backup, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Equal(t, "Restored 2 games\n", out)

	exported := filepath.Join(dir, "export.json")
	out, err = run(t, "export", "-o", exported, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 games")
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"slug": "alpha"`)

	out, err = run(t, "export", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "b"`)

	_, err = run(t, "wipe", "--data-dir", dataDir)
	assert.Error(t, err)

	out, err = run(t, "wipe", "--yes", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Equal(t, "Deleted 2 games\n", out)
}

func TestRedirectCommands(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")

	current := writeFile(t, dir, "current.json", `[{"id":"a","title":"Alpha","slug":"alpha-new"}]`)
	old := writeFile(t, dir, "old.json", `[{"id":"a","title":"Alpha","slug":"alpha-old"}]`)

	_, err := run(t, "restore", current, "--data-dir", dataDir)
	require.NoError(t, err)

	out, err := run(t, "redirects", "backfill", old, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Equal(t, "Created 1 redirects\n", out)

	out, err = run(t, "redirects", "list", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha-old")
	assert.Contains(t, out, "alpha-new")

	_, err = run(t, "redirects", "delete", "alpha-old", "--data-dir", dataDir)
	require.NoError(t, err)
	_, err = run(t, "redirects", "delete", "alpha-old", "--data-dir", dataDir)
	assert.Error(t, err)
}

func TestSnapshotCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()
	snapDir := filepath.Join(dir, "snaps")

	out, err := run(t, "snapshot", "--dir", snapDir, "--data-dir", filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+filepath.Join(snapDir, "backup-"))

	entries, err := os.ReadDir(snapDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRestoreRejectsBadFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()

	_, err := run(t, "restore", filepath.Join(dir, "missing.json"), "--data-dir", dir)
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.json", `{"items":[]}`)
	_, err = run(t, "restore", bad, "--data-dir", dir)
	assert.Error(t, err)
}
