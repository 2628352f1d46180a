package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_CreatesWithPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	require.NoError(t, AtomicWriteFile(path, []byte(`{"a":1}`), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAtomicWriteFile_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	require.NoError(t, AtomicWriteFile(path, []byte("old"), 0o600))
	require.NoError(t, AtomicWriteFile(path, []byte("new"), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "data.json")
	assert.Error(t, AtomicWriteFile(path, []byte("x"), 0o600))
}

func TestUUIDGenerator(t *testing.T) {
	g := NewUUIDGenerator()
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Len(t, g.Short(), 8)
}

func TestAtomicWriteFiles_AllOrNothingOnStagingFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.json")
	require.NoError(t, AtomicWriteFile(good, []byte("old"), 0o600))

	err := AtomicWriteFiles(map[string][]byte{
		good: []byte("new"),
		filepath.Join(dir, "missing", "b.json"): []byte("x"),
	}, 0o600)
	require.Error(t, err)

	got, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be removed")
}

func TestAtomicWriteFiles_WritesEveryFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		filepath.Join(dir, "users.json"):    []byte("u"),
		filepath.Join(dir, "roles.json"):    []byte("r"),
		filepath.Join(dir, "licenses.json"): []byte("l"),
	}
	require.NoError(t, AtomicWriteFiles(files, 0o600))

	for path, want := range files {
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAtomicWriteFiles_RenameFailureKeepsEarlierTargets(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")
	require.NoError(t, AtomicWriteFile(first, []byte("old"), 0o600))
	// a non-empty directory cannot be replaced by a file
	require.NoError(t, os.MkdirAll(filepath.Join(second, "inner"), 0o700))

	err := AtomicWriteFiles(map[string][]byte{first: []byte("new"), second: []byte("x")}, 0o600)
	require.Error(t, err)

	got, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files must be removed")
}
