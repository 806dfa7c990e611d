// Package scheduler drives the execution of a cascade run's step plan.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
)

// Scheduler walks a validated plan, launching ready steps concurrently with
// bounded parallelism and propagating failures to dependents.
//
// All step status transitions happen on the coordinating goroutine; worker
// goroutines communicate results back over a channel, so DAG bookkeeping
// itself never blocks and never races.
type Scheduler struct {
	executor ports.StepExecutor
	backend  ports.Backend
	tracer   ports.Tracer
	renderer ports.Renderer
	logger   ports.Logger
	cfg      domain.ExecutorConfig
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	executor ports.StepExecutor,
	backend ports.Backend,
	tracer ports.Tracer,
	renderer ports.Renderer,
	logger ports.Logger,
	cfg domain.ExecutorConfig,
) *Scheduler {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = domain.DefaultParallelism
	}
	return &Scheduler{
		executor: executor,
		backend:  backend,
		tracer:   tracer,
		renderer: renderer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run executes every step of the run's plan until all steps reach a
// terminal state. It returns an aggregate error of terminal step failures;
// a cancelled context additionally surfaces as domain.ErrRunCancelled.
func (s *Scheduler) Run(ctx context.Context, run *domain.CascadeRun) error {
	if err := run.Plan.Validate(); err != nil {
		return err
	}

	state := s.newRunState(ctx, run)

	planned := make([]string, 0, run.Plan.StepCount())
	deps := make(map[string][]string, run.Plan.StepCount())
	for step := range run.Plan.Walk() {
		planned = append(planned, step.ID)
		deps[step.ID] = step.DependsOn
	}
	s.tracer.EmitPlan(ctx, planned)
	s.renderer.OnPlanEmit(planned, deps)

	err := state.runExecutionLoop()
	run.EndedAt = time.Now()
	return err
}

// result is the synchronized handoff from a worker back to the coordinator.
// A dependent step observes its dependency's outcome exactly once, through
// the coordinator's bookkeeping of these results.
type result struct {
	stepID    string
	output    string
	err       error
	corrected bool
	startedAt time.Time
	endedAt   time.Time
}

type runState struct {
	s    *Scheduler
	ctx  context.Context
	plan *domain.Plan

	inDegree  map[string]int
	ready     []string
	active    int
	remaining int
	resultsCh chan result
	errs      error

	// inFlightWrites maps a mutating step's target path to the running
	// step id. Two ready steps writing the same file are never dispatched
	// simultaneously.
	inFlightWrites map[string]string
	// acquiredPath remembers the path each running step locked at dispatch
	// time; a corrected retry may rewrite the step's params, so release
	// must not re-derive the path from them.
	acquiredPath map[string]string
}

func (s *Scheduler) newRunState(ctx context.Context, run *domain.CascadeRun) *runState {
	state := &runState{
		s:              s,
		ctx:            ctx,
		plan:           run.Plan,
		inDegree:       make(map[string]int, run.Plan.StepCount()),
		resultsCh:      make(chan result, s.cfg.Parallelism),
		remaining:      run.Plan.StepCount(),
		inFlightWrites: make(map[string]string),
		acquiredPath:   make(map[string]string),
	}

	for step := range run.Plan.Steps() {
		state.inDegree[step.ID] = len(step.DependsOn)
		if len(step.DependsOn) == 0 {
			state.markReady(step.ID)
		}
	}

	return state
}

func (state *runState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			if state.active == 0 {
				state.cancelRemaining()
				break
			}
			// Running steps finish on their own terms; just drain them.
			state.handleResult(<-state.resultsCh)
			continue
		}

		if state.active == 0 && len(state.ready) == 0 {
			// Pending steps remain but nothing can become ready: the run
			// is stuck. Plan validation keeps well-formed plans out of
			// this state; it guards against coordinator bookkeeping bugs.
			// Fail the remainder rather than hang.
			state.failRemaining(domain.ErrDeadlockDetected)
			state.errs = errors.Join(state.errs, domain.ErrDeadlockDetected)
			break
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, domain.ErrRunCancelled)
	}

	return state.errs
}

func (state *runState) isDone() bool {
	return state.active == 0 && state.remaining == 0
}

// schedule dispatches ready steps up to the parallelism bound, holding back
// any mutating step whose target path is already in flight.
func (state *runState) schedule() {
	var deferred []string

	for len(state.ready) > 0 && state.active < state.s.cfg.Parallelism && state.ctx.Err() == nil {
		stepID := state.ready[0]
		state.ready = state.ready[1:]

		step, _ := state.plan.GetStep(stepID)

		if target := step.Params.TargetPath(); target != "" {
			if _, busy := state.inFlightWrites[target]; busy {
				deferred = append(deferred, stepID)
				continue
			}
			state.inFlightWrites[target] = stepID
			state.acquiredPath[stepID] = target
		}

		state.active++
		step.Status = domain.StatusRunning
		step.StartedAt = time.Now()
		state.s.renderer.OnStepStart(step.ID, step.Action, step.StartedAt)

		go state.executeStep(step)
	}

	state.ready = append(state.ready, deferred...)
}

// executeStep runs a step on a worker goroutine, applying the per-step
// timeout and the bounded self-correction retry, then hands the result back.
func (state *runState) executeStep(step *domain.Step) {
	res := func() result {
		started := time.Now()

		// Cancellation stops dispatch, not execution: a step that is already
		// running gets to finish so the workspace is not left half-written.
		// The per-step timeout still applies through runWithTimeout.
		ctx, span := state.s.tracer.Start(context.WithoutCancel(state.ctx), "step "+step.ID)
		defer span.End()
		span.SetAttribute("cascade.action", string(step.Action))

		output, err := state.runWithTimeout(ctx, step)
		corrected := false

		// Bounded self-correction: exactly one corrected retry, and only
		// when the failure is the step's own, not a cancellation.
		if err != nil && state.ctx.Err() == nil {
			if params, raw, corrErr := state.s.requestCorrection(ctx, step, err); corrErr == nil {
				step.Params = params
				step.RawParams = raw
				corrected = true
				output, err = state.runWithTimeout(ctx, step)
			}
		}

		if err != nil {
			span.RecordError(err)
		}

		return result{
			stepID:    step.ID,
			output:    output,
			err:       err,
			corrected: corrected,
			startedAt: started,
			endedAt:   time.Now(),
		}
	}()

	state.resultsCh <- res
}

func (state *runState) runWithTimeout(ctx context.Context, step *domain.Step) (string, error) {
	if state.s.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, state.s.cfg.StepTimeout)
		defer cancel()
	}

	output, err := state.s.executor.Execute(ctx, step)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return output, zerr.With(domain.ErrStepTimeout, "step", step.ID)
	}
	return output, err
}

func (state *runState) handleResult(res result) {
	state.active--
	state.remaining--

	step, _ := state.plan.GetStep(res.stepID)
	step.StartedAt = res.startedAt
	step.EndedAt = res.endedAt
	step.Result = res.output
	step.Corrected = res.corrected

	if target, ok := state.acquiredPath[res.stepID]; ok {
		delete(state.inFlightWrites, target)
		delete(state.acquiredPath, res.stepID)
	}

	if res.err != nil {
		step.Status = domain.StatusFailed
		step.Error = res.err.Error()
		enhanced := zerr.With(errors.Join(domain.ErrStepExecutionFailed, res.err), "step", step.ID)
		state.errs = errors.Join(state.errs, enhanced)
		state.s.renderer.OnStepComplete(step.ID, step.Status, step.EndedAt, res.err)
		state.propagateFailure(step.ID)
		return
	}

	step.Status = domain.StatusSucceeded
	state.s.renderer.OnStepComplete(step.ID, step.Status, step.EndedAt, nil)

	for _, dep := range state.plan.Dependents(step.ID) {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			if d, ok := state.plan.GetStep(dep); ok && d.Status == domain.StatusPending {
				state.markReady(dep)
			}
		}
	}
}

func (state *runState) markReady(stepID string) {
	if step, ok := state.plan.GetStep(stepID); ok {
		step.Status = domain.StatusReady
	}
	state.ready = append(state.ready, stepID)
}

// propagateFailure deterministically marks every transitive dependent of a
// failed step as failed-skipped, so every step reaches a terminal state
// without running.
func (state *runState) propagateFailure(stepID string) {
	queue := state.plan.Dependents(stepID)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		step, ok := state.plan.GetStep(id)
		if !ok || step.Status.Terminal() || step.Status == domain.StatusRunning {
			continue
		}

		step.Status = domain.StatusFailedSkipped
		step.Error = "dependency failed: " + stepID
		step.EndedAt = time.Now()
		state.remaining--
		state.removeFromReady(id)
		state.s.renderer.OnStepComplete(id, step.Status, step.EndedAt, nil)

		queue = append(queue, state.plan.Dependents(id)...)
	}
}

func (state *runState) removeFromReady(stepID string) {
	for i, id := range state.ready {
		if id == stepID {
			state.ready = append(state.ready[:i], state.ready[i+1:]...)
			return
		}
	}
}

// cancelRemaining marks every non-terminal step as failed-cancelled.
// Running steps have already finished by the time this is called.
func (state *runState) cancelRemaining() {
	state.markRemaining(domain.StatusFailedCancelled, domain.ErrRunCancelled.Error())
}

// failRemaining marks every non-terminal step as failed with the given cause.
func (state *runState) failRemaining(cause error) {
	state.markRemaining(domain.StatusFailed, cause.Error())
}

func (state *runState) markRemaining(status domain.StepStatus, reason string) {
	now := time.Now()
	for step := range state.plan.Steps() {
		if step.Status.Terminal() || step.Status == domain.StatusRunning {
			continue
		}
		step.Status = status
		step.Error = reason
		step.EndedAt = now
		state.remaining--
		state.s.renderer.OnStepComplete(step.ID, step.Status, now, nil)
	}
	state.ready = nil
}
