// Package app implements the application layer for cascade.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/cascade/internal/adapters/actions"
	"go.trai.ch/cascade/internal/adapters/backend"
	"go.trai.ch/cascade/internal/adapters/detector"
	"go.trai.ch/cascade/internal/adapters/linear"
	"go.trai.ch/cascade/internal/adapters/scanner"
	"go.trai.ch/cascade/internal/adapters/watcher"
	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/cascade/internal/engine/contextbuild"
	"go.trai.ch/cascade/internal/engine/index"
	"go.trai.ch/cascade/internal/engine/planner"
	"go.trai.ch/cascade/internal/engine/scheduler"
	"go.trai.ch/cascade/internal/engine/verifier"
	"go.trai.ch/cascade/internal/ui/output"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	fs           ports.FileSystem
	store        ports.IndexStore
	tracer       ports.Tracer
	watcher      ports.Watcher
	logger       ports.Logger

	stderr     io.Writer
	newBackend func(cfg domain.BackendConfig) ports.Backend
	newScanner func(cfg domain.Config) ports.Scanner
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	fs ports.FileSystem,
	store ports.IndexStore,
	tracer ports.Tracer,
	fsWatcher ports.Watcher,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		fs:           fs,
		store:        store,
		tracer:       tracer,
		watcher:      fsWatcher,
		logger:       log,
		stderr:       os.Stderr,
		newBackend: func(cfg domain.BackendConfig) ports.Backend {
			return backend.NewClient(cfg)
		},
		newScanner: func(cfg domain.Config) ports.Scanner {
			return scanner.NewScanner(log, cfg.ExcludeDirs)
		},
	}
}

// WithStderr redirects run rendering. This is primarily used for testing.
func (a *App) WithStderr(w io.Writer) *App {
	a.stderr = w
	return a
}

// WithBackendFactory overrides backend construction. This is primarily used
// for testing against a mock backend.
func (a *App) WithBackendFactory(factory func(cfg domain.BackendConfig) ports.Backend) *App {
	a.newBackend = factory
	return a
}

// WithScannerFactory overrides scanner construction. This is primarily used
// for testing.
func (a *App) WithScannerFactory(factory func(cfg domain.Config) ports.Scanner) *App {
	a.newScanner = factory
	return a
}

// RunOptions configuration for the RunCascade method.
type RunOptions struct {
	// DryRun stops after planning: the plan is rendered but no step runs.
	DryRun bool
	// OutputMode overrides rendering detection: auto, pretty, plain or ci.
	OutputMode string
}

// RunCascade plans and executes a task against the indexed source tree.
// The returned summary is valid even when err is non-nil, except for
// planning failures where no run was created.
func (a *App) RunCascade(ctx context.Context, taskText string, opts RunOptions) (domain.RunSummary, error) {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return domain.RunSummary{}, err
	}

	idx, err := a.ensureIndex(ctx, cfg)
	if err != nil {
		return domain.RunSummary{}, err
	}

	builder := contextbuild.NewBuilder(idx, a.fs, a.logger)
	contextBlock := builder.Build(taskText, cfg.Context.MaxFiles, cfg.Context.TokenBudget)

	llm := a.newBackend(cfg.Backend)
	plan, err := planner.NewPlanner(llm, a.logger, cfg.Backend).Plan(ctx, taskText, contextBlock)
	if err != nil {
		return domain.RunSummary{}, err
	}

	run := domain.NewCascadeRun(taskText, contextBlock, plan)

	profile := output.ColorProfileANSI
	if detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode) == detector.ModePretty {
		profile = output.ColorProfile
	}
	renderer := linear.NewRendererWithProfile(a.stderr, profile)

	if opts.DryRun {
		planned, deps := planOutline(plan)
		renderer.OnPlanEmit(planned, deps)
		run.EndedAt = time.Now()
		return run.Summarize(), nil
	}

	executor := actions.NewExecutor(a.fs, llm, builder, plan, cfg.Context)
	sched := scheduler.NewScheduler(executor, llm, a.tracer, renderer, a.logger, cfg.Executor)

	runErr := sched.Run(ctx, run)

	summary := verifier.NewVerifier(llm, a.logger).Verify(ctx, run)
	renderer.OnRunComplete(summary)

	if summary.Failed > 0 && runErr == nil {
		runErr = domain.ErrCascadeFailed
	}
	return summary, runErr
}

// ScanResult reports the outcome of an explicit scan.
type ScanResult struct {
	Files    int
	Issues   []domain.ScanIssue
	Duration time.Duration
}

// Scan walks the configured roots, rebuilds the index and persists the
// snapshot.
func (a *App) Scan(ctx context.Context) (ScanResult, error) {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return ScanResult{}, err
	}

	started := time.Now()
	idx, issues, err := a.rebuild(ctx, cfg)
	if err != nil {
		return ScanResult{}, err
	}

	return ScanResult{
		Files:    idx.FileCount(),
		Issues:   issues,
		Duration: time.Since(started),
	}, nil
}

// QueryDefinition returns the locations declaring the given name.
func (a *App) QueryDefinition(ctx context.Context, name string) ([]ports.IndexOccurrence, error) {
	idx, err := a.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	return idx.FindDefinition(name), nil
}

// QueryFiles returns the files most relevant to the task text, best first.
func (a *App) QueryFiles(ctx context.Context, taskText string, maxFiles int) ([]index.RelevanceScore, error) {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return nil, err
	}
	if maxFiles <= 0 {
		maxFiles = cfg.Context.MaxFiles
	}
	idx, err := a.restoreIndex(cfg)
	if err != nil {
		return nil, err
	}
	return idx.RelevantFiles(taskText, maxFiles), nil
}

// QueryUsages returns the files importing the given module.
func (a *App) QueryUsages(ctx context.Context, module string) ([]string, error) {
	idx, err := a.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Usages(module), nil
}

// Watch keeps the index snapshot fresh by rescanning after debounced file
// changes. It blocks until the context is cancelled.
func (a *App) Watch(ctx context.Context) error {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return err
	}

	idx, err := a.ensureIndex(ctx, cfg)
	if err != nil {
		return err
	}

	filter := watcher.NewChangeFilter()
	filter.Seed(snapshotSummaries(idx))

	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		a.logger.Info(fmt.Sprintf("rescanning after %d change(s)", len(paths)))
		if _, _, rescanErr := a.rebuild(ctx, cfg); rescanErr != nil {
			a.logger.Error(rescanErr)
		}
	})

	root := cfg.Roots[0]
	if len(cfg.Roots) > 1 {
		a.logger.Warn(fmt.Sprintf("watch mode covers the first root only (%s)", root))
	}
	if err := a.watcher.Start(ctx, root); err != nil {
		return zerr.Wrap(err, "failed to start file watcher")
	}
	defer func() {
		_ = a.watcher.Stop()
		debouncer.Flush()
	}()

	a.logger.Info(fmt.Sprintf("watching %s", root))

	allowed := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		allowed[ext] = true
	}

	for event := range a.watcher.Events() {
		if !allowed[filepath.Ext(event.Path)] {
			continue
		}
		if event.Operation == ports.OpWrite && !filter.Changed(event.Path) {
			continue
		}
		if event.Operation == ports.OpRemove || event.Operation == ports.OpRename {
			filter.Forget(event.Path)
		}
		debouncer.Add(event.Path)
	}

	return ctx.Err()
}

// Clean removes the cascade metadata directory.
func (a *App) Clean(_ context.Context) error {
	path := domain.DefaultCascadePath()
	a.logger.Info(fmt.Sprintf("removing %s...", path))
	if err := os.RemoveAll(path); err != nil {
		return zerr.Wrap(err, "failed to remove cascade metadata")
	}
	a.logger.Info(fmt.Sprintf("removed %s", path))
	return nil
}

// ensureIndex restores the persisted snapshot, falling back to a fresh scan
// when it is missing or corrupt.
func (a *App) ensureIndex(ctx context.Context, cfg domain.Config) (*index.Index, error) {
	idx, err := a.restoreIndex(cfg)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, domain.ErrSnapshotReadFailed) {
		a.logger.Warn(fmt.Sprintf("discarding unusable index snapshot: %v", err))
	}

	idx, _, err = a.rebuild(ctx, cfg)
	return idx, err
}

// loadIndex serves queries: the persisted snapshot is authoritative and a
// missing one means no scan has happened yet.
func (a *App) loadIndex(_ context.Context) (*index.Index, error) {
	cfg, err := a.configLoader.Load(".")
	if err != nil {
		return nil, err
	}
	return a.restoreIndex(cfg)
}

func (a *App) restoreIndex(cfg domain.Config) (*index.Index, error) {
	snapshot, err := a.store.Load(cfg.SnapshotPath)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotReadFailed) {
			return nil, errors.Join(domain.ErrIndexEmpty, err)
		}
		return nil, err
	}

	idx := index.New(cfg.Scoring)
	if err := idx.Restore(snapshot); err != nil {
		return nil, err
	}
	return idx, nil
}

// rebuild scans the configured roots, replaces the index and persists it.
func (a *App) rebuild(ctx context.Context, cfg domain.Config) (*index.Index, []domain.ScanIssue, error) {
	summaries, issues, err := a.newScanner(cfg).Scan(ctx, cfg.Roots, cfg.Extensions)
	if err != nil {
		return nil, nil, err
	}
	for _, issue := range issues {
		a.logger.Warn(fmt.Sprintf("scan issue: %s: %s", issue.Path, issue.Message))
	}

	idx := index.New(cfg.Scoring)
	idx.Replace(summaries)

	if err := a.store.Save(cfg.SnapshotPath, idx.Snapshot()); err != nil {
		return nil, nil, err
	}
	a.logger.Info(fmt.Sprintf("indexed %d files", idx.FileCount()))
	return idx, issues, nil
}

func planOutline(plan *domain.Plan) ([]string, map[string][]string) {
	planned := make([]string, 0, plan.StepCount())
	deps := make(map[string][]string, plan.StepCount())
	for step := range plan.Walk() {
		planned = append(planned, step.ID)
		deps[step.ID] = step.DependsOn
	}
	return planned, deps
}

func snapshotSummaries(idx *index.Index) map[string]domain.FileSummary {
	return idx.Snapshot().Summaries
}
