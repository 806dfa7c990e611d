package domain

import (
	"time"

	"github.com/google/uuid"
)

// CascadeRun owns the full set of steps for one task invocation.
// It is created when planning succeeds and never outlives the invocation
// that created it; step objects are not shared across runs.
type CascadeRun struct {
	ID        string
	Task      string
	Context   string
	Plan      *Plan
	StartedAt time.Time
	EndedAt   time.Time
}

// NewCascadeRun creates a run for the given task text, context block and plan.
func NewCascadeRun(task, contextBlock string, plan *Plan) *CascadeRun {
	return &CascadeRun{
		ID:        uuid.NewString(),
		Task:      task,
		Context:   contextBlock,
		Plan:      plan,
		StartedAt: time.Now(),
	}
}

// Duration returns the wall-clock duration of the run.
func (r *CascadeRun) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// FindingKind classifies a verifier finding.
type FindingKind string

const (
	// FindingWriteWithoutRead flags a write step whose target was never
	// successfully read earlier in the plan.
	FindingWriteWithoutRead FindingKind = "write-without-read"
	// FindingNonTerminalDependency flags a dependency edge pointing at a
	// step that never reached a terminal state.
	FindingNonTerminalDependency FindingKind = "non-terminal-dependency"
	// FindingFailedSteps summarizes the failed step count.
	FindingFailedSteps FindingKind = "failed-steps"
)

// Finding is a structural problem detected by the verifier over a completed run.
type Finding struct {
	Kind   FindingKind
	StepID string
	Detail string
}

// RunSummary is the operator-facing result of a cascade run.
type RunSummary struct {
	RunID       string
	Task        string
	Steps       int
	Succeeded   int
	Failed      int
	Duration    time.Duration
	Findings    []Finding
	Remediation string
}

// Summarize computes aggregate counters over the run's step records.
// Skipped and cancelled steps count as failed: they never produced a result.
func (r *CascadeRun) Summarize() RunSummary {
	summary := RunSummary{
		RunID:    r.ID,
		Task:     r.Task,
		Steps:    r.Plan.StepCount(),
		Duration: r.Duration(),
	}
	for step := range r.Plan.Steps() {
		switch step.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusFailed, StatusFailedSkipped, StatusFailedCancelled:
			summary.Failed++
		}
	}
	return summary
}
