// Package linear provides a synchronous, line-oriented renderer for run
// progress, suited to CI and non-interactive terminals.
package linear

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/cascade/internal/ui/output"
	"go.trai.ch/cascade/internal/ui/style"
)

// Renderer implements ports.Renderer with chronological stderr lines.
type Renderer struct {
	stderr io.Writer
	output *termenv.Output

	mu    sync.Mutex
	steps map[string]stepState
}

type stepState struct {
	action    domain.ActionKind
	startTime time.Time
}

// NewRenderer creates a new linear renderer. A nil writer defaults to stderr.
func NewRenderer(stderr io.Writer) *Renderer {
	return NewRendererWithProfile(stderr, output.ColorProfileANSI)
}

// NewRendererWithProfile creates a linear renderer with an explicit termenv
// color profile, letting interactive runs use richer colors than CI logs.
func NewRendererWithProfile(stderr io.Writer, profileFn func() termenv.Profile) *Renderer {
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Renderer{
		stderr: stderr,
		output: output.NewWithProfile(stderr, profileFn),
		steps:  make(map[string]stepState),
	}
}

var _ ports.Renderer = (*Renderer)(nil)

// OnPlanEmit prints the validated plan: each step with its dependencies.
func (r *Renderer) OnPlanEmit(steps []string, deps map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "Plan: %d step(s)\n", len(steps))
	for _, stepID := range steps {
		if len(deps[stepID]) == 0 {
			_, _ = fmt.Fprintf(r.stderr, "  %s\n", stepID)
			continue
		}
		_, _ = fmt.Fprintf(r.stderr, "  %s %s %v\n", stepID, style.Arrow, deps[stepID])
	}
}

// OnStepStart prints a start line and remembers the start time.
func (r *Renderer) OnStepStart(stepID string, action domain.ActionKind, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps[stepID] = stepState{action: action, startTime: startTime}

	prefix := r.output.String(fmt.Sprintf("[%s]", stepID)).Faint().String()
	_, _ = fmt.Fprintf(r.stderr, "%s %s started\n", prefix, action)
}

// OnStepComplete prints the step's terminal status with its duration.
func (r *Renderer) OnStepComplete(stepID string, status domain.StepStatus, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := fmt.Sprintf("[%s]", stepID)
	symbol, verb := r.statusSymbol(status)

	if state, ok := r.steps[stepID]; ok {
		duration := endTime.Sub(state.startTime).Round(time.Millisecond)
		if err != nil {
			_, _ = fmt.Fprintf(r.stderr, "%s %s %s after %v: %v\n", prefix, symbol, verb, duration, err)
		} else {
			_, _ = fmt.Fprintf(r.stderr, "%s %s %s in %v\n", prefix, symbol, verb, duration)
		}
		delete(r.steps, stepID)
		return
	}

	// Steps that never started: skipped or cancelled.
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s: %v\n", prefix, symbol, verb, err)
	} else {
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s\n", prefix, symbol, verb)
	}
}

// OnRunComplete prints the aggregate summary, findings and remediation.
func (r *Renderer) OnRunComplete(summary domain.RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "\nRun %s: %d/%d step(s) succeeded in %v\n",
		summary.RunID, summary.Succeeded, summary.Steps, summary.Duration.Round(time.Millisecond))

	if len(summary.Findings) > 0 {
		_, _ = fmt.Fprintf(r.stderr, "Findings:\n")
		findings := make([]domain.Finding, len(summary.Findings))
		copy(findings, summary.Findings)
		sort.Slice(findings, func(i, j int) bool {
			if findings[i].Kind != findings[j].Kind {
				return findings[i].Kind < findings[j].Kind
			}
			return findings[i].StepID < findings[j].StepID
		})
		for _, finding := range findings {
			_, _ = fmt.Fprintf(r.stderr, "  %s %s\n",
				r.output.String(style.Warning).Foreground(termenv.ANSIYellow).String(),
				finding.Detail)
		}
	}

	if summary.Remediation != "" {
		_, _ = fmt.Fprintf(r.stderr, "Suggested next step: %s\n", summary.Remediation)
	}
}

func (r *Renderer) statusSymbol(status domain.StepStatus) (string, string) {
	switch status {
	case domain.StatusSucceeded:
		return r.output.String(style.Check).Foreground(termenv.ANSIGreen).String(), "completed"
	case domain.StatusFailed:
		return r.output.String(style.Cross).Foreground(termenv.ANSIRed).String(), "failed"
	case domain.StatusFailedSkipped:
		return r.output.String(style.Skip).Foreground(termenv.ANSIYellow).String(), "skipped (dependency failed)"
	case domain.StatusFailedCancelled:
		return r.output.String(style.Tilde).Foreground(termenv.ANSIYellow).String(), "cancelled"
	default:
		return style.Circle, string(status)
	}
}
