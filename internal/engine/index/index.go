// Package index implements the in-memory source index: reverse lookup tables
// over file summaries and the relevance query used for context building.
package index

import (
	"sort"
	"sync"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
)

// Index aggregates file summaries into reverse lookup tables.
//
// The only mutator is Replace, which swaps the whole structure atomically
// under the write lock; reads during a cascade run therefore never race with
// partial updates. Rebuilding is always whole-file, never incremental-merge,
// which keeps the path invariant trivially true after a scan.
type Index struct {
	mu        sync.RWMutex
	summaries map[string]domain.FileSummary
	lookups   map[string][]ports.IndexOccurrence
	users     map[string][]string

	scoring domain.ScoringConfig
}

// New creates an empty Index with the given scoring weights.
func New(scoring domain.ScoringConfig) *Index {
	return &Index{
		summaries: make(map[string]domain.FileSummary),
		lookups:   make(map[string][]ports.IndexOccurrence),
		users:     make(map[string][]string),
		scoring:   scoring,
	}
}

// Replace swaps the whole index state for the given summary collection,
// rebuilding every lookup table.
func (idx *Index) Replace(summaries map[string]domain.FileSummary) {
	lookups := make(map[string][]ports.IndexOccurrence)
	users := make(map[string][]string)

	for path, summary := range summaries {
		for _, decl := range summary.Decls {
			lookups[decl.Name] = append(lookups[decl.Name], ports.IndexOccurrence{
				Path:      path,
				StartLine: decl.StartLine,
				EndLine:   decl.EndLine,
				Kind:      decl.Kind,
			})
		}
		for _, module := range summary.Imports {
			users[module] = append(users[module], path)
		}
	}

	sortTables(lookups, users)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.summaries = summaries
	idx.lookups = lookups
	idx.users = users
}

// sortTables orders every occurrence and user list by path (then line) so
// queries answer deterministically regardless of map iteration order.
func sortTables(lookups map[string][]ports.IndexOccurrence, users map[string][]string) {
	for _, occs := range lookups {
		sort.Slice(occs, func(i, j int) bool {
			if occs[i].Path != occs[j].Path {
				return occs[i].Path < occs[j].Path
			}
			return occs[i].StartLine < occs[j].StartLine
		})
	}
	for _, paths := range users {
		sort.Strings(paths)
	}
}

// FindDefinition returns every occurrence of an exact, case-sensitive name
// match across all indexed declarations. An empty result is not an error.
func (idx *Index) FindDefinition(name string) []ports.IndexOccurrence {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	occs := idx.lookups[name]
	out := make([]ports.IndexOccurrence, len(occs))
	copy(out, occs)
	return out
}

// Usages returns the paths that import the given module name.
func (idx *Index) Usages(module string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	paths := idx.users[module]
	out := make([]string, len(paths))
	copy(out, paths)
	return out
}

// Summary returns the summary for a path, if indexed.
func (idx *Index) Summary(path string) (domain.FileSummary, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s, ok := idx.summaries[path]
	return s, ok
}

// FileCount returns the number of indexed files.
func (idx *Index) FileCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.summaries)
}

// Snapshot exports the full index state for persistence.
func (idx *Index) Snapshot() *ports.IndexSnapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	snapshot := &ports.IndexSnapshot{
		Summaries:   make(map[string]domain.FileSummary, len(idx.summaries)),
		Lookups:     make(map[string][]ports.IndexOccurrence, len(idx.lookups)),
		ModuleUsers: make(map[string][]string, len(idx.users)),
	}
	for path, s := range idx.summaries {
		snapshot.Summaries[path] = s
	}
	for name, occs := range idx.lookups {
		snapshot.Lookups[name] = append([]ports.IndexOccurrence(nil), occs...)
	}
	for module, paths := range idx.users {
		snapshot.ModuleUsers[module] = append([]string(nil), paths...)
	}
	return snapshot
}

// Restore replaces the index state from a loaded snapshot after validating
// the path invariant: every path referenced by a lookup table must exist in
// the summary collection. Inconsistent snapshots are rejected, not repaired.
func (idx *Index) Restore(snapshot *ports.IndexSnapshot) error {
	if err := validate(snapshot); err != nil {
		return err
	}

	sortTables(snapshot.Lookups, snapshot.ModuleUsers)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.summaries = snapshot.Summaries
	idx.lookups = snapshot.Lookups
	idx.users = snapshot.ModuleUsers
	return nil
}

func validate(snapshot *ports.IndexSnapshot) error {
	for name, occs := range snapshot.Lookups {
		for _, occ := range occs {
			if _, ok := snapshot.Summaries[occ.Path]; !ok {
				err := zerr.With(domain.ErrIndexInconsistent, "name", name)
				return zerr.With(err, "path", occ.Path)
			}
		}
	}
	for module, paths := range snapshot.ModuleUsers {
		for _, path := range paths {
			if _, ok := snapshot.Summaries[path]; !ok {
				err := zerr.With(domain.ErrIndexInconsistent, "module", module)
				return zerr.With(err, "path", path)
			}
		}
	}
	return nil
}
