// Package fs implements filesystem access for step execution and scanning.
package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
)

// FS implements ports.FileSystem on the host filesystem.
type FS struct{}

// NewFS creates a new FS instance.
func NewFS() *FS {
	return &FS{}
}

var _ ports.FileSystem = (*FS)(nil)

// Read returns the content of the file at path.
func (f *FS) Read(path string) ([]byte, error) {
	// #nosec G304 -- path comes from the operator's own plan
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrFileReadFailed, err), "path", path)
	}
	return data, nil
}

// Write replaces the content of the file at path, creating parent
// directories as needed.
func (f *FS) Write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
			return zerr.With(errors.Join(domain.ErrFileWriteFailed, err), "path", path)
		}
	}
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(errors.Join(domain.ErrFileWriteFailed, err), "path", path)
	}
	return nil
}

// List returns the paths under root matching the glob pattern. When
// recursive is true the pattern is matched against the root-relative path
// at every depth; otherwise only direct children are considered.
func (f *FS) List(root, pattern string, recursive bool) ([]string, error) {
	if !recursive {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "invalid glob pattern"), "pattern", pattern)
		}
		return matches, nil
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		matched, matchErr := filepath.Match(pattern, rel)
		if matchErr != nil {
			return matchErr
		}
		if !matched {
			// Patterns without a separator also match against the basename,
			// so "*.go" finds files at any depth.
			matched, _ = filepath.Match(pattern, filepath.Base(rel))
		}
		if matched {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "listing failed"), "root", root)
	}
	return matches, nil
}
