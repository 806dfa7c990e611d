// Package contextbuild renders a bounded, self-describing context block for
// a task description from the most relevant indexed files.
package contextbuild

import (
	"fmt"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/cascade/internal/engine/index"
)

// TruncationMarker closes a context block that could not fit even summaries
// for every relevant file.
const TruncationMarker = "=== context truncated: token budget exhausted ==="

// Builder assembles context blocks from the source index and file contents.
type Builder struct {
	index  *index.Index
	fs     ports.FileSystem
	logger ports.Logger
}

// NewBuilder creates a Builder over the given index and file collaborator.
func NewBuilder(idx *index.Index, fs ports.FileSystem, logger ports.Logger) *Builder {
	return &Builder{index: idx, fs: fs, logger: logger}
}

// Build renders a context block for the task. Files are appended in score
// order: full content while it fits the token budget, summary-only when it
// would not, and a truncation marker once even summaries exceed the budget.
// Every included unit is tagged with its source path for provenance.
func (b *Builder) Build(taskText string, maxFiles, tokenBudget int) string {
	scores := b.index.RelevantFiles(taskText, maxFiles)
	if len(scores) == 0 {
		return ""
	}

	var block strings.Builder
	remaining := tokenBudget

	for _, rel := range scores {
		summary, ok := b.index.Summary(rel.Path)
		if !ok {
			continue
		}

		unit := b.renderFull(rel)
		if unit == "" || estimateTokens(unit) > remaining {
			unit = renderSummary(rel, summary)
		}

		cost := estimateTokens(unit)
		if cost > remaining {
			block.WriteString(TruncationMarker + "\n")
			break
		}

		block.WriteString(unit)
		remaining -= cost
	}

	return block.String()
}

// renderFull returns the full-content unit for a file, or "" when the file
// cannot be read (it may have vanished since the scan).
func (b *Builder) renderFull(rel index.RelevanceScore) string {
	content, err := b.fs.Read(rel.Path)
	if err != nil {
		b.logger.Warn(fmt.Sprintf("context: cannot read %s, falling back to summary", rel.Path))
		return ""
	}

	var unit strings.Builder
	fmt.Fprintf(&unit, "=== file: %s (score %.1f) ===\n", rel.Path, rel.Score)
	unit.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		unit.WriteByte('\n')
	}
	return unit.String()
}

// renderSummary returns the summary-only unit: declared names plus docstring.
func renderSummary(rel index.RelevanceScore, summary domain.FileSummary) string {
	var unit strings.Builder
	fmt.Fprintf(&unit, "=== summary: %s (score %.1f) ===\n", rel.Path, rel.Score)
	if summary.Doc != "" {
		fmt.Fprintf(&unit, "doc: %s\n", summary.Doc)
	}
	for _, decl := range summary.Decls {
		fmt.Fprintf(&unit, "%s %s (lines %d-%d)\n", decl.Kind, decl.Name, decl.StartLine, decl.EndLine)
	}
	return unit.String()
}

// estimateTokens approximates the token cost of text as bytes/4, the usual
// rough ratio for English and source code.
func estimateTokens(text string) int {
	return len(text) / 4
}
