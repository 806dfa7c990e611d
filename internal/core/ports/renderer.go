package ports

import (
	"time"

	"go.trai.ch/cascade/internal/core/domain"
)

// Renderer is the abstraction for run output rendering.
// It decouples scheduler events from presentation so the same stream can
// drive linear CI logs or a richer front end.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// OnPlanEmit is called once the plan is validated.
	// steps: step ids in execution order; deps: step id -> dependency ids.
	OnPlanEmit(steps []string, deps map[string][]string)

	// OnStepStart is called when a step begins execution.
	OnStepStart(stepID string, action domain.ActionKind, startTime time.Time)

	// OnStepComplete is called when a step reaches a terminal state.
	OnStepComplete(stepID string, status domain.StepStatus, endTime time.Time, err error)

	// OnRunComplete is called with the final summary.
	OnRunComplete(summary domain.RunSummary)
}
