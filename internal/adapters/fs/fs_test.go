package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cascade/internal/adapters/fs"
	"go.trai.ch/cascade/internal/core/domain"
)

func TestFS_ReadWrite_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	f := fs.NewFS()

	path := filepath.Join(tmpDir, "nested", "dir", "out.txt")
	require.NoError(t, f.Write(path, []byte("hello")))

	data, err := f.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestFS_Read_MissingFile(t *testing.T) {
	f := fs.NewFS()

	_, err := f.Read(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFileReadFailed))
}

func TestFS_Write_OverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	f := fs.NewFS()

	path := filepath.Join(tmpDir, "file.txt")
	require.NoError(t, f.Write(path, []byte("first")))
	require.NoError(t, f.Write(path, []byte("second")))

	data, err := f.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFS_List_NonRecursive(t *testing.T) {
	tmpDir := t.TempDir()
	f := fs.NewFS()

	require.NoError(t, f.Write(filepath.Join(tmpDir, "a.go"), []byte("package a")))
	require.NoError(t, f.Write(filepath.Join(tmpDir, "b.txt"), []byte("b")))
	require.NoError(t, f.Write(filepath.Join(tmpDir, "sub", "c.go"), []byte("package c")))

	matches, err := f.List(tmpDir, "*.go", false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tmpDir, "a.go")}, matches)
}

func TestFS_List_Recursive(t *testing.T) {
	tmpDir := t.TempDir()
	f := fs.NewFS()

	require.NoError(t, f.Write(filepath.Join(tmpDir, "a.go"), []byte("package a")))
	require.NoError(t, f.Write(filepath.Join(tmpDir, "sub", "c.go"), []byte("package c")))
	require.NoError(t, f.Write(filepath.Join(tmpDir, "sub", "d.txt"), []byte("d")))

	matches, err := f.List(tmpDir, "*.go", true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(tmpDir, "a.go"),
		filepath.Join(tmpDir, "sub", "c.go"),
	}, matches)
}

func TestWalker_WalkFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "dir1"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "dir2"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "file1.txt"), []byte("content1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "dir1", "file2.txt"), []byte("content2"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "dir2", "file3.txt"), []byte("content3"), 0o600))

	walker := fs.NewWalker()
	files := make([]string, 0)

	for filePath := range walker.WalkFiles(tmpDir, nil) {
		files = append(files, filePath)
	}

	assert.Len(t, files, 3)
	assert.Contains(t, files, filepath.Join(tmpDir, "file1.txt"))
	assert.Contains(t, files, filepath.Join(tmpDir, "dir1", "file2.txt"))
	assert.Contains(t, files, filepath.Join(tmpDir, "dir2", "file3.txt"))
}

func TestWalker_WalkFiles_SkipsExcludedDirs(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".git", "objects"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "node_modules", "pkg"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "src"), 0o750))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".git", "config"), []byte("gitconfig"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "node_modules", "pkg", "index.js"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "src", "main.go"), []byte("package main"), 0o600))

	walker := fs.NewWalker(domain.DefaultExcludeDirs()...)
	files := make([]string, 0)

	for filePath := range walker.WalkFiles(tmpDir, nil) {
		files = append(files, filePath)
	}

	assert.Equal(t, []string{filepath.Join(tmpDir, "src", "main.go")}, files)
}

func TestWalker_WalkFiles_EarlyStop(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o600))
	}

	walker := fs.NewWalker()
	count := 0
	for range walker.WalkFiles(tmpDir, nil) {
		count++
		break
	}

	assert.Equal(t, 1, count)
}
