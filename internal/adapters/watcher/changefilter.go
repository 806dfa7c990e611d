package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unique"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/cascade/internal/core/domain"
)

// ChangeFilter distinguishes real content changes from spurious watch
// events. Editors commonly touch files without altering them; comparing
// the content hash against the last indexed hash lets rescans skip those.
type ChangeFilter struct {
	mu     sync.RWMutex
	hashes map[unique.Handle[string]]string
}

// NewChangeFilter creates an empty change filter.
func NewChangeFilter() *ChangeFilter {
	return &ChangeFilter{
		hashes: make(map[unique.Handle[string]]string),
	}
}

// Seed primes the filter with hashes from previously indexed summaries.
func (c *ChangeFilter) Seed(summaries map[string]domain.FileSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, summary := range summaries {
		if summary.Hash == "" {
			continue
		}
		c.hashes[unique.Make(path)] = summary.Hash
	}
}

// Changed reports whether the file at path differs from the last seen
// content. Unreadable files (including removed ones) always count as
// changed. The recorded hash is updated as a side effect.
func (c *ChangeFilter) Changed(path string) bool {
	key := unique.Make(filepath.ToSlash(path))

	content, err := os.ReadFile(path)
	if err != nil {
		c.mu.Lock()
		delete(c.hashes, key)
		c.mu.Unlock()
		return true
	}
	hash := fmt.Sprintf("%016x", xxhash.Sum64(content))

	c.mu.RLock()
	previous, known := c.hashes[key]
	c.mu.RUnlock()
	if known && previous == hash {
		return false
	}

	c.mu.Lock()
	c.hashes[key] = hash
	c.mu.Unlock()
	return true
}

// Forget drops the recorded hash for a path.
func (c *ChangeFilter) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hashes, unique.Make(filepath.ToSlash(path)))
}
