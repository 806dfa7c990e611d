package ports

import "go.trai.ch/cascade/internal/core/domain"

// IndexSnapshot is the serialized form of the whole source index.
// Lookups holds name -> occurrences and ModuleUsers holds imported module ->
// importing paths; both are derived from Summaries but persisted alongside
// them so a load can verify the index invariant instead of silently
// rebuilding over inconsistent data.
type IndexSnapshot struct {
	Summaries   map[string]domain.FileSummary `json:"summaries"`
	Lookups     map[string][]IndexOccurrence  `json:"lookups"`
	ModuleUsers map[string][]string           `json:"module_users"`
}

// IndexOccurrence is one (path, line range, kind) hit for a declared name.
type IndexOccurrence struct {
	Path      string          `json:"path"`
	StartLine int             `json:"start_line"`
	EndLine   int             `json:"end_line"`
	Kind      domain.DeclKind `json:"kind"`
}

// IndexStore persists and restores the source index snapshot.
// Save followed by Load must reproduce an index answering identically to
// every query.
//
//go:generate mockgen -source=index_store.go -destination=mocks/mock_index_store.go -package=mocks
type IndexStore interface {
	// Save writes the snapshot to the given path.
	Save(path string, snapshot *IndexSnapshot) error

	// Load reads a snapshot from the given path. It validates the checksum
	// and the path invariant, failing loudly on any inconsistency.
	Load(path string) (*IndexSnapshot, error)
}
