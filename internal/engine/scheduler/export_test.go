package scheduler

import (
	"context"

	"go.trai.ch/cascade/internal/core/domain"
)

// ParseCorrection exposes parseCorrection for white-box tests.
var ParseCorrection = parseCorrection

// FormatParams exposes formatParams for white-box tests.
var FormatParams = formatParams

// RunStalledLoop drives the execution loop against a run state whose ready
// queue was lost while steps remain pending. Plan validation makes this
// unreachable through Run, so tests construct the stall directly.
func RunStalledLoop(s *Scheduler, ctx context.Context, run *domain.CascadeRun) error {
	state := s.newRunState(ctx, run)
	state.ready = nil
	return state.runExecutionLoop()
}
