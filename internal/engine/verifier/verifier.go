// Package verifier checks a completed cascade run for structural problems
// and, when steps failed, asks the backend for a remediation suggestion.
package verifier

import (
	"context"
	"fmt"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
)

const remediationPrompt = `An automated coding run partially failed. Summarize, in at
most three sentences, what the operator should do next.

Task: %s

Failed steps:
%s`

const (
	remediationTemperature = 0.3
	remediationMaxTokens   = 512
)

// Verifier inspects completed runs. All findings are derived purely from
// the run's own step records; the backend is consulted only for the
// remediation text and its failure never fails verification.
type Verifier struct {
	backend ports.Backend
	logger  ports.Logger
}

// NewVerifier creates a new Verifier with the given dependencies.
func NewVerifier(backend ports.Backend, logger ports.Logger) *Verifier {
	return &Verifier{backend: backend, logger: logger}
}

// Verify produces the run summary: aggregate counters, structural findings,
// and a remediation suggestion when anything failed.
func (v *Verifier) Verify(ctx context.Context, run *domain.CascadeRun) domain.RunSummary {
	summary := run.Summarize()
	summary.Findings = v.collectFindings(run)

	if summary.Failed > 0 {
		summary.Findings = append(summary.Findings, domain.Finding{
			Kind:   domain.FindingFailedSteps,
			Detail: fmt.Sprintf("%d of %d steps failed", summary.Failed, summary.Steps),
		})
		summary.Remediation = v.remediate(ctx, run)
	}

	return summary
}

func (v *Verifier) collectFindings(run *domain.CascadeRun) []domain.Finding {
	var findings []domain.Finding

	// Paths covered by a successful read before each step, following plan
	// order. A write whose target was never read is flagged: the step had
	// no grounded view of the file it changed.
	readPaths := make(map[string]bool)

	for step := range run.Plan.Walk() {
		if step.Action.Mutating() && step.Status == domain.StatusSucceeded {
			if target := step.Params.TargetPath(); target != "" && !readPaths[target] {
				findings = append(findings, domain.Finding{
					Kind:   domain.FindingWriteWithoutRead,
					StepID: step.ID,
					Detail: fmt.Sprintf("step %q wrote %q without an earlier successful read", step.ID, target),
				})
			}
		}

		for _, dep := range step.DependsOn {
			depStep, ok := run.Plan.GetStep(dep)
			if ok && !depStep.Status.Terminal() {
				findings = append(findings, domain.Finding{
					Kind:   domain.FindingNonTerminalDependency,
					StepID: step.ID,
					Detail: fmt.Sprintf("step %q depends on %q which never reached a terminal state", step.ID, dep),
				})
			}
		}

		// Only a successful read grounds later writes. A write does not:
		// a chain of writes to the same path is still blind to the file's
		// actual content, and each one gets its own finding.
		if step.Status == domain.StatusSucceeded {
			if path := step.Params.ReadPath(); path != "" {
				readPaths[path] = true
			}
		}
	}

	return findings
}

func (v *Verifier) remediate(ctx context.Context, run *domain.CascadeRun) string {
	var failed strings.Builder
	for step := range run.Plan.Walk() {
		if step.Status == domain.StatusFailed {
			fmt.Fprintf(&failed, "  %s (%s): %s\n", step.ID, step.Action, step.Error)
		}
	}
	if failed.Len() == 0 {
		return ""
	}

	prompt := fmt.Sprintf(remediationPrompt, run.Task, failed.String())
	suggestion, err := v.backend.Complete(ctx, prompt, ports.CompletionParams{
		Temperature: remediationTemperature,
		MaxTokens:   remediationMaxTokens,
	})
	if err != nil {
		v.logger.Warn(fmt.Sprintf("remediation request failed: %v", err))
		return ""
	}
	return strings.TrimSpace(suggestion)
}
