package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// Walker yields regular files under a root, pruning excluded directories.
type Walker struct {
	skipDirs map[string]bool
}

// NewWalker creates a Walker skipping the given directory names at any depth.
func NewWalker(excludeDirs ...string) *Walker {
	skip := make(map[string]bool, len(excludeDirs))
	for _, dir := range excludeDirs {
		skip[dir] = true
	}
	return &Walker{skipDirs: skip}
}

// WalkFiles returns an iterator over every regular file under root.
// Walk errors on individual entries are reported through onError (may be
// nil) and do not stop the walk.
func (w *Walker) WalkFiles(root string, onError func(path string, err error)) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if onError != nil {
					onError(path, err)
				}
				return nil
			}

			if d.IsDir() {
				if path != root && w.skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
