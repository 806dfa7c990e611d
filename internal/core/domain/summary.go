// Package domain contains the core domain models for the cascade engine:
// file summaries produced by the scanner, the step dependency plan, and the
// cascade run bookkeeping.
package domain

// DeclKind classifies a declaration extracted from a source file.
type DeclKind string

const (
	// DeclType is a declared type (struct, class, interface, alias).
	DeclType DeclKind = "type"
	// DeclFunc is a free-standing callable.
	DeclFunc DeclKind = "func"
	// DeclMethod is a callable bound to a receiver or class.
	DeclMethod DeclKind = "method"
)

// Declaration is a single named declaration inside a source file.
type Declaration struct {
	Name      string   `json:"name"`
	Kind      DeclKind `json:"kind"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	// Params holds parameter names for callables. Empty for types.
	Params []string `json:"params,omitempty"`
}

// FileSummary is the structural summary of one source file.
// It is produced by the scanner, immutable once built, and replaced
// wholesale when the file is rescanned.
type FileSummary struct {
	Path     string        `json:"path"`
	Language string        `json:"language"`
	Size     int64         `json:"size"`
	Lines    int           `json:"lines"`
	Doc      string        `json:"doc,omitempty"`
	Imports  []string      `json:"imports,omitempty"`
	Decls    []Declaration `json:"decls,omitempty"`
	// Hash is the xxhash of the file content at scan time, used for
	// cheap change detection between rescans.
	Hash string `json:"hash,omitempty"`
	// Approximate marks summaries produced by the line-pattern fallback
	// parser rather than a real parse tree.
	Approximate bool `json:"approximate,omitempty"`
}

// ScanIssue records a per-file problem encountered during a scan.
// Issues never abort the scan; the offending file is skipped.
type ScanIssue struct {
	Path    string
	Message string
}
