package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/cascade/internal/core/ports/mocks"
	"go.trai.ch/cascade/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type schedulerTestMocks struct {
	executor *mocks.MockStepExecutor
	backend  *mocks.MockBackend
	tracer   *mocks.MockTracer
	renderer *mocks.MockRenderer
	logger   *mocks.MockLogger
}

// setupSchedulerTest creates a scheduler and common mocks.
func setupSchedulerTest(t *testing.T, cfg domain.ExecutorConfig) (*scheduler.Scheduler, schedulerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := schedulerTestMocks{
		executor: mocks.NewMockStepExecutor(ctrl),
		backend:  mocks.NewMockBackend(ctrl),
		tracer:   mocks.NewMockTracer(ctrl),
		renderer: mocks.NewMockRenderer(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
	}

	// Default optimistic mocks to reduce noise in specific tests.
	mockSpan := mocks.NewMockSpan(ctrl)
	mockSpan.EXPECT().End().AnyTimes()
	mockSpan.EXPECT().RecordError(gomock.Any()).AnyTimes()
	mockSpan.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()

	// Start has variadic signature: Start(ctx, name, ...opts).
	m.tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, mockSpan
		},
	).AnyTimes()
	m.tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any()).AnyTimes()

	m.renderer.EXPECT().OnPlanEmit(gomock.Any(), gomock.Any()).AnyTimes()
	m.renderer.EXPECT().OnStepStart(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.renderer.EXPECT().OnStepComplete(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	m.renderer.EXPECT().OnRunComplete(gomock.Any()).AnyTimes()

	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	m.logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	m.logger.EXPECT().Error(gomock.Any()).AnyTimes()

	s := scheduler.NewScheduler(m.executor, m.backend, m.tracer, m.renderer, m.logger, cfg)
	return s, m
}

// newStep builds a validated step for tests.
func newStep(t *testing.T, id string, action domain.ActionKind, raw map[string]string, deps ...string) *domain.Step {
	t.Helper()
	params, err := domain.ParseStepParams(action, raw)
	require.NoError(t, err)
	return &domain.Step{
		ID:        id,
		Action:    action,
		Params:    params,
		RawParams: raw,
		DependsOn: deps,
		Status:    domain.StatusPending,
	}
}

func analyzeStep(t *testing.T, id string, deps ...string) *domain.Step {
	t.Helper()
	return newStep(t, id, domain.ActionAnalyze, map[string]string{"prompt": "analyze " + id}, deps...)
}

func writeStep(t *testing.T, id, path string, deps ...string) *domain.Step {
	t.Helper()
	return newStep(t, id, domain.ActionWrite, map[string]string{"path": path, "content": id}, deps...)
}

func buildRun(t *testing.T, steps ...*domain.Step) *domain.CascadeRun {
	t.Helper()
	plan := domain.NewPlan()
	for _, step := range steps {
		require.NoError(t, plan.AddStep(step))
	}
	return domain.NewCascadeRun("test task", "", plan)
}

func stepStatus(t *testing.T, run *domain.CascadeRun, id string) domain.StepStatus {
	t.Helper()
	step, ok := run.Plan.GetStep(id)
	require.True(t, ok)
	return step.Status
}

func TestScheduler_LinearChain(t *testing.T) {
	s, m := setupSchedulerTest(t, domain.ExecutorConfig{Parallelism: 2})

	run := buildRun(t,
		analyzeStep(t, "a"),
		analyzeStep(t, "b", "a"),
		analyzeStep(t, "c", "b"),
	)

	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, step *domain.Step) (string, error) {
			return "done " + step.ID, nil
		}).Times(3)

	err := s.Run(context.Background(), run)
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, domain.StatusSucceeded, stepStatus(t, run, id))
	}
	step, _ := run.Plan.GetStep("c")
	assert.Equal(t, "done c", step.Result)
}

func TestScheduler_DiamondFailurePropagation(t *testing.T) {
	s, m := setupSchedulerTest(t, domain.ExecutorConfig{Parallelism: 2})

	run := buildRun(t,
		analyzeStep(t, "a"),
		analyzeStep(t, "b", "a"),
		analyzeStep(t, "c", "a"),
		analyzeStep(t, "d", "b", "c"),
	)

	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, step *domain.Step) (string, error) {
			if step.ID == "b" {
				return "", domain.ErrBackendUnavailable
			}
			return "ok", nil
		}).AnyTimes()

	// The correction request itself fails, so b stays failed without retry.
	m.backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", domain.ErrBackendUnavailable)

	err := s.Run(context.Background(), run)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrStepExecutionFailed.Error())

	assert.Equal(t, domain.StatusSucceeded, stepStatus(t, run, "a"))
	assert.Equal(t, domain.StatusFailed, stepStatus(t, run, "b"))
	assert.Equal(t, domain.StatusSucceeded, stepStatus(t, run, "c"))
	assert.Equal(t, domain.StatusFailedSkipped, stepStatus(t, run, "d"))

	d, _ := run.Plan.GetStep("d")
	assert.Contains(t, d.Error, "dependency failed: b")
}

func TestScheduler_CorrectedRetrySucceeds(t *testing.T) {
	s, m := setupSchedulerTest(t, domain.ExecutorConfig{Parallelism: 1})

	run := buildRun(t, analyzeStep(t, "a"))

	attempts := 0
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, step *domain.Step) (string, error) {
			attempts++
			if attempts == 1 {
				return "", domain.ErrBackendUnavailable
			}
			return step.Params.Analyze.Prompt, nil
		}).Times(2)

	m.backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(`{"prompt": "corrected prompt"}`, nil)

	err := s.Run(context.Background(), run)
	require.NoError(t, err)

	step, _ := run.Plan.GetStep("a")
	assert.Equal(t, domain.StatusSucceeded, step.Status)
	assert.True(t, step.Corrected)
	assert.Equal(t, "corrected prompt", step.Result)
	assert.Equal(t, "corrected prompt", step.Params.Analyze.Prompt)
}

func TestScheduler_RetryFailureIsTerminal(t *testing.T) {
	s, m := setupSchedulerTest(t, domain.ExecutorConfig{Parallelism: 1})

	run := buildRun(t, analyzeStep(t, "a"))

	// Both the original attempt and the corrected retry fail: exactly two
	// executions, exactly one correction request.
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
		Return("", domain.ErrBackendUnavailable).Times(2)
	m.backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(`{"prompt": "still broken"}`, nil).Times(1)

	err := s.Run(context.Background(), run)
	require.Error(t, err)

	step, _ := run.Plan.GetStep("a")
	assert.Equal(t, domain.StatusFailed, step.Status)
	assert.True(t, step.Corrected)
	assert.NotEmpty(t, step.Error)
}

func TestScheduler_WriteSerialization(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s, m := setupSchedulerTest(t, domain.ExecutorConfig{Parallelism: 4})

		run := buildRun(t,
			writeStep(t, "w1", "shared.txt"),
			writeStep(t, "w2", "shared.txt"),
			writeStep(t, "w3", "other.txt"),
		)

		var mu sync.Mutex
		inFlight := make(map[string]int)
		maxSharedInFlight := 0

		m.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, step *domain.Step) (string, error) {
				path := step.Params.Write.Path
				mu.Lock()
				inFlight[path]++
				if path == "shared.txt" && inFlight[path] > maxSharedInFlight {
					maxSharedInFlight = inFlight[path]
				}
				mu.Unlock()

				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				inFlight[path]--
				mu.Unlock()
				return "ok", nil
			}).Times(3)

		err := s.Run(context.Background(), run)
		require.NoError(t, err)

		assert.Equal(t, 1, maxSharedInFlight, "same-path writes must never overlap")
		for _, id := range []string{"w1", "w2", "w3"} {
			assert.Equal(t, domain.StatusSucceeded, stepStatus(t, run, id))
		}
	})
}

func TestScheduler_Cancellation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s, m := setupSchedulerTest(t, domain.ExecutorConfig{Parallelism: 2})

		run := buildRun(t,
			analyzeStep(t, "a"),
			analyzeStep(t, "b"),
			analyzeStep(t, "c", "a"),
			analyzeStep(t, "d", "b"),
			analyzeStep(t, "e", "c", "d"),
		)

		// Only the two root steps ever execute; they outlive the cancel.
		// The stub honors its context like a real executor, so it would
		// fail early if run cancellation leaked into step execution.
		m.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ *domain.Step) (string, error) {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(50 * time.Millisecond):
					return "finished", nil
				}
			}).Times(2)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := s.Run(ctx, run)
		require.Error(t, err)
		assert.ErrorContains(t, err, domain.ErrRunCancelled.Error())

		// Running steps finished on their own terms.
		assert.Equal(t, domain.StatusSucceeded, stepStatus(t, run, "a"))
		assert.Equal(t, domain.StatusSucceeded, stepStatus(t, run, "b"))
		// Nothing new was dispatched after cancellation.
		for _, id := range []string{"c", "d", "e"} {
			assert.Equal(t, domain.StatusFailedCancelled, stepStatus(t, run, id))
		}
	})
}

func TestScheduler_StepTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s, m := setupSchedulerTest(t, domain.ExecutorConfig{
			Parallelism: 1,
			StepTimeout: 20 * time.Millisecond,
		})

		run := buildRun(t, analyzeStep(t, "slow"))

		// Both the original attempt and the corrected retry exceed the
		// per-step budget.
		m.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ *domain.Step) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}).Times(2)
		m.backend.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(`{"prompt": "faster please"}`, nil)

		err := s.Run(context.Background(), run)
		require.Error(t, err)
		assert.ErrorContains(t, err, domain.ErrStepTimeout.Error())

		step, _ := run.Plan.GetStep("slow")
		assert.Equal(t, domain.StatusFailed, step.Status)
	})
}

func TestScheduler_StalledRunFailsRemainingSteps(t *testing.T) {
	s, _ := setupSchedulerTest(t, domain.ExecutorConfig{Parallelism: 1})

	run := buildRun(t,
		analyzeStep(t, "a"),
		analyzeStep(t, "b", "a"),
	)

	err := scheduler.RunStalledLoop(s, context.Background(), run)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeadlockDetected)

	// Nothing hangs: every pending step reaches a terminal failed state.
	for _, id := range []string{"a", "b"} {
		assert.Equal(t, domain.StatusFailed, stepStatus(t, run, id))
	}
}

func TestScheduler_RejectsCyclicPlan(t *testing.T) {
	s, _ := setupSchedulerTest(t, domain.ExecutorConfig{Parallelism: 1})

	run := buildRun(t,
		analyzeStep(t, "a", "b"),
		analyzeStep(t, "b", "a"),
	)

	err := s.Run(context.Background(), run)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrCycleDetected.Error())
}
