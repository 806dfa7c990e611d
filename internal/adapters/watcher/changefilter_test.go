package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cascade/internal/adapters/watcher"
	"go.trai.ch/cascade/internal/core/domain"
)

func TestChangeFilter_UnseenFileIsChanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	f := watcher.NewChangeFilter()
	assert.True(t, f.Changed(path))
}

func TestChangeFilter_TouchWithoutChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	content := []byte("package main\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	f := watcher.NewChangeFilter()
	require.True(t, f.Changed(path))

	// Rewriting identical content must not count as a change.
	require.NoError(t, os.WriteFile(path, content, 0o644))
	assert.False(t, f.Changed(path))
}

func TestChangeFilter_ContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	f := watcher.NewChangeFilter()
	require.True(t, f.Changed(path))

	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644))
	assert.True(t, f.Changed(path))

	// And the new hash is remembered.
	assert.False(t, f.Changed(path))
}

func TestChangeFilter_RemovedFileIsChanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.go")
	require.NoError(t, os.WriteFile(path, []byte("package gone\n"), 0o644))

	f := watcher.NewChangeFilter()
	require.True(t, f.Changed(path))

	require.NoError(t, os.Remove(path))
	assert.True(t, f.Changed(path))
}

func TestChangeFilter_SeedFromSummaries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.go")
	content := []byte("package lib\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	summaries := map[string]domain.FileSummary{
		filepath.ToSlash(path): {
			Path: filepath.ToSlash(path),
			Hash: fmt.Sprintf("%016x", xxhash.Sum64(content)),
		},
	}

	f := watcher.NewChangeFilter()
	f.Seed(summaries)

	// Seeded hash matches on-disk content, so the first event is spurious.
	assert.False(t, f.Changed(path))
}

func TestChangeFilter_Forget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.go")
	require.NoError(t, os.WriteFile(path, []byte("package lib\n"), 0o644))

	f := watcher.NewChangeFilter()
	require.True(t, f.Changed(path))
	require.False(t, f.Changed(path))

	f.Forget(path)
	assert.True(t, f.Changed(path))
}
