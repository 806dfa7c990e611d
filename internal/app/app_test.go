package app_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cascade/internal/adapters/telemetry"
	"go.trai.ch/cascade/internal/app"
	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/cascade/internal/core/ports/mocks"
	"go.trai.ch/cascade/internal/engine/index"
	"go.uber.org/mock/gomock"
)

func testConfig(t *testing.T) domain.Config {
	t.Helper()
	cfg := domain.DefaultConfig()
	dir := t.TempDir()
	cfg.Roots = []string{dir}
	cfg.SnapshotPath = filepath.Join(dir, ".cascade", "index.json")
	return cfg
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()
	return logger
}

// indexedSnapshot builds a consistent snapshot containing one Go file.
func indexedSnapshot(cfg domain.Config) *ports.IndexSnapshot {
	idx := index.New(cfg.Scoring)
	idx.Replace(map[string]domain.FileSummary{
		"pkg/greeter.go": {
			Path:     "pkg/greeter.go",
			Language: "go",
			Doc:      "Package greeter prints greetings.",
			Imports:  []string{"fmt"},
			Decls: []domain.Declaration{
				{Name: "Greet", Kind: domain.DeclFunc, StartLine: 5, EndLine: 9},
			},
		},
	})
	return idx.Snapshot()
}

func TestApp_RunCascade_AnalysisPlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(".").Return(cfg, nil)

	store := mocks.NewMockIndexStore(ctrl)
	store.EXPECT().Load(cfg.SnapshotPath).Return(indexedSnapshot(cfg), nil)

	fs := mocks.NewMockFileSystem(ctrl)
	fs.EXPECT().Read(gomock.Any()).Return([]byte("package greeter\n"), nil).AnyTimes()

	llm := mocks.NewMockBackend(ctrl)
	gomock.InOrder(
		llm.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(`[{"id":"s1","action":"run-analysis","params":{"prompt":"describe the greeter"},"depends_on":[]}]`, nil),
		llm.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("the greeter greets", nil),
	)

	a := app.New(loader, fs, store, telemetry.NewNoOpTracer(), nil, quietLogger(ctrl)).
		WithStderr(io.Discard).
		WithBackendFactory(func(domain.BackendConfig) ports.Backend { return llm })

	summary, err := a.RunCascade(context.Background(), "describe the greeter package", app.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Steps)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Remediation)
}

func TestApp_RunCascade_DryRunPlansOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(".").Return(cfg, nil)

	store := mocks.NewMockIndexStore(ctrl)
	store.EXPECT().Load(cfg.SnapshotPath).Return(indexedSnapshot(cfg), nil)

	fs := mocks.NewMockFileSystem(ctrl)
	fs.EXPECT().Read(gomock.Any()).Return([]byte("package greeter\n"), nil).AnyTimes()

	// Exactly one completion: the plan. No step may execute.
	llm := mocks.NewMockBackend(ctrl)
	llm.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(`[{"id":"s1","action":"run-analysis","params":{"prompt":"p"},"depends_on":[]}]`, nil)

	var rendered strings.Builder
	a := app.New(loader, fs, store, telemetry.NewNoOpTracer(), nil, quietLogger(ctrl)).
		WithStderr(&rendered).
		WithBackendFactory(func(domain.BackendConfig) ports.Backend { return llm })

	summary, err := a.RunCascade(context.Background(), "task", app.RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Steps)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Contains(t, rendered.String(), "s1")
}

func TestApp_RunCascade_PlanningFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(".").Return(cfg, nil)

	store := mocks.NewMockIndexStore(ctrl)
	store.EXPECT().Load(cfg.SnapshotPath).Return(indexedSnapshot(cfg), nil)

	fs := mocks.NewMockFileSystem(ctrl)
	fs.EXPECT().Read(gomock.Any()).Return([]byte("package greeter\n"), nil).AnyTimes()

	// Both the planning attempt and its single retry return garbage.
	llm := mocks.NewMockBackend(ctrl)
	llm.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("not json", nil).
		Times(2)

	a := app.New(loader, fs, store, telemetry.NewNoOpTracer(), nil, quietLogger(ctrl)).
		WithStderr(io.Discard).
		WithBackendFactory(func(domain.BackendConfig) ports.Backend { return llm })

	_, err := a.RunCascade(context.Background(), "task", app.RunOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrPlanningFailed.Error())
}

func TestApp_Scan_PersistsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(".").Return(cfg, nil)

	scan := mocks.NewMockScanner(ctrl)
	scan.EXPECT().Scan(gomock.Any(), cfg.Roots, cfg.Extensions).Return(
		map[string]domain.FileSummary{
			"a.go": {Path: "a.go", Language: "go"},
			"b.py": {Path: "b.py", Language: "python"},
		},
		[]domain.ScanIssue{{Path: "c.js", Message: "parse failed"}},
		nil,
	)

	store := mocks.NewMockIndexStore(ctrl)
	store.EXPECT().Save(cfg.SnapshotPath, gomock.Any()).Return(nil)

	a := app.New(loader, mocks.NewMockFileSystem(ctrl), store, telemetry.NewNoOpTracer(), nil, quietLogger(ctrl)).
		WithScannerFactory(func(domain.Config) ports.Scanner { return scan })

	result, err := a.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)
	assert.Len(t, result.Issues, 1)
}

func TestApp_QueryDefinition(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(".").Return(cfg, nil)

	store := mocks.NewMockIndexStore(ctrl)
	store.EXPECT().Load(cfg.SnapshotPath).Return(indexedSnapshot(cfg), nil)

	a := app.New(loader, mocks.NewMockFileSystem(ctrl), store, telemetry.NewNoOpTracer(), nil, quietLogger(ctrl))

	occurrences, err := a.QueryDefinition(context.Background(), "Greet")
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, "pkg/greeter.go", occurrences[0].Path)
}

func TestApp_QueryDefinition_NoIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(".").Return(cfg, nil)

	store := mocks.NewMockIndexStore(ctrl)
	store.EXPECT().Load(cfg.SnapshotPath).
		Return(nil, domain.ErrSnapshotReadFailed)

	a := app.New(loader, mocks.NewMockFileSystem(ctrl), store, telemetry.NewNoOpTracer(), nil, quietLogger(ctrl))

	_, err := a.QueryDefinition(context.Background(), "Greet")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexEmpty)
	assert.ErrorIs(t, err, domain.ErrSnapshotReadFailed)
}

func TestApp_Clean(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Chdir(t.TempDir())

	a := app.New(
		mocks.NewMockConfigLoader(ctrl),
		mocks.NewMockFileSystem(ctrl),
		mocks.NewMockIndexStore(ctrl),
		telemetry.NewNoOpTracer(),
		nil,
		quietLogger(ctrl),
	)

	require.NoError(t, a.Clean(context.Background()))
}
