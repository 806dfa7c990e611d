// Package ports defines the core interfaces for the application.
package ports

import "context"

// CompletionParams tune a single backend completion request.
type CompletionParams struct {
	Temperature float64
	MaxTokens   int
}

// Backend is the LLM completion service used by the planner, the
// self-correction routine and the verifier.
//
// Implementations must surface every transport, rate-limit or
// malformed-response problem as domain.ErrBackendUnavailable so callers can
// treat it as a recoverable, step-level failure.
//
//go:generate mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks
type Backend interface {
	// Complete sends a prompt and returns the completion text.
	Complete(ctx context.Context, prompt string, params CompletionParams) (string, error)
}
