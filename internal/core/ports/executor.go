package ports

import (
	"context"

	"go.trai.ch/cascade/internal/core/domain"
)

// StepExecutor runs a single step's action.
//
// Only write and patch actions may mutate the target file system; every
// other kind must be side-effect-free with respect to the source tree.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type StepExecutor interface {
	// Execute runs the step and returns its result payload.
	Execute(ctx context.Context, step *domain.Step) (string, error)
}
