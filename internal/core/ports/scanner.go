package ports

import (
	"context"

	"go.trai.ch/cascade/internal/core/domain"
)

// Scanner walks source roots and produces structural file summaries.
//
// A scan is all-or-nothing only at the walk level: per-file parse failures
// are reported as issues and the file is skipped, never aborting the scan.
// The returned map is a fresh snapshot; the scanner holds no index state.
//
//go:generate mockgen -source=scanner.go -destination=mocks/mock_scanner.go -package=mocks
type Scanner interface {
	Scan(ctx context.Context, roots []string, extensions []string) (map[string]domain.FileSummary, []domain.ScanIssue, error)
}
