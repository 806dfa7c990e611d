package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
	"go.trai.ch/cascade/internal/adapters/fs"
	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Scanner implements ports.Scanner: it walks the configured roots, parses
// every matching file and returns the fresh summary set.
type Scanner struct {
	logger      ports.Logger
	excludeDirs []string
	generic     *GenericParser
}

// NewScanner creates a Scanner skipping the given directory names.
func NewScanner(logger ports.Logger, excludeDirs []string) *Scanner {
	return &Scanner{
		logger:      logger,
		excludeDirs: excludeDirs,
		generic:     NewGenericParser(),
	}
}

var _ ports.Scanner = (*Scanner)(nil)

// Scan walks all roots and parses every file whose extension is in
// extensions. Per-file failures become issues, never scan errors; the scan
// itself fails only when a root is unusable or the context is cancelled.
func (s *Scanner) Scan(ctx context.Context, roots []string, extensions []string) (map[string]domain.FileSummary, []domain.ScanIssue, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var mu sync.Mutex
	summaries := make(map[string]domain.FileSummary)
	var issues []domain.ScanIssue

	addIssue := func(path, message string) {
		mu.Lock()
		issues = append(issues, domain.ScanIssue{Path: path, Message: message})
		mu.Unlock()
	}

	paths := make(chan string)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(paths)
		for _, root := range roots {
			if err := s.walkRoot(groupCtx, root, allowed, paths, addIssue); err != nil {
				return err
			}
		}
		return nil
	})

	// Each worker owns its own parser registry; tree-sitter parsers are
	// not safe for concurrent use.
	workers := min(runtime.GOMAXPROCS(0), 4)
	for range workers {
		group.Go(func() error {
			registry := NewDefaultRegistry()
			for path := range paths {
				summary, issue, ok := s.parseFile(registry, path)
				if issue != "" {
					addIssue(path, issue)
				}
				if !ok {
					continue
				}
				mu.Lock()
				summaries[summary.Path] = summary
				mu.Unlock()
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, errors.Join(domain.ErrScanFailed, err)
	}

	return summaries, issues, nil
}

func (s *Scanner) walkRoot(ctx context.Context, root string, allowed map[string]bool, paths chan<- string, addIssue func(path, message string)) error {
	if _, err := os.Stat(root); err != nil {
		return zerr.With(zerr.Wrap(err, "unusable scan root"), "root", root)
	}

	ignorer := loadGitignore(root)

	walker := fs.NewWalker(s.excludeDirs...)
	for path := range walker.WalkFiles(root, func(path string, err error) {
		addIssue(path, fmt.Sprintf("walk error: %v", err))
	}) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(path))] {
			continue
		}

		if ignorer != nil {
			if rel, err := filepath.Rel(root, path); err == nil && ignorer.MatchesPath(rel) {
				continue
			}
		}

		select {
		case paths <- path:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// parseFile parses one file, falling back to the approximate parser when
// the real parse fails. The returned issue string is empty on clean parses.
func (s *Scanner) parseFile(registry *Registry, path string) (domain.FileSummary, string, bool) {
	//nolint:gosec // paths come from the walked scan roots
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.FileSummary{}, fmt.Sprintf("read failed: %v", err), false
	}

	key := filepath.ToSlash(path)

	parser, ok := registry.ParserFor(path)
	if !ok {
		summary, _ := s.generic.Parse(key, content)
		return summary, "", true
	}

	summary, err := parser.Parse(key, content)
	if err != nil {
		fallback, _ := s.generic.Parse(key, content)
		return fallback, fmt.Sprintf("parse failed, using approximate summary: %v", err), true
	}

	return summary, "", true
}

// loadGitignore compiles the root's .gitignore, if present.
func loadGitignore(root string) *gitignore.GitIgnore {
	ignorer, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ignorer
}
