package linear_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/cascade/internal/adapters/linear"
	"go.trai.ch/cascade/internal/core/domain"
)

func newTestRenderer(t *testing.T) (*linear.Renderer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	return linear.NewRenderer(buf), buf
}

func TestRenderer_OnPlanEmit(t *testing.T) {
	r, buf := newTestRenderer(t)

	r.OnPlanEmit([]string{"s1", "s2"}, map[string][]string{
		"s2": {"s1"},
	})

	out := buf.String()
	assert.Contains(t, out, "Plan: 2 step(s)")
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "s2 → [s1]")
}

func TestRenderer_StepLifecycle(t *testing.T) {
	r, buf := newTestRenderer(t)

	start := time.Now()
	r.OnStepStart("s1", domain.ActionRead, start)
	r.OnStepComplete("s1", domain.StatusSucceeded, start.Add(25*time.Millisecond), nil)

	out := buf.String()
	assert.Contains(t, out, "[s1] read started")
	assert.Contains(t, out, "✓ completed in 25ms")
}

func TestRenderer_StepFailure(t *testing.T) {
	r, buf := newTestRenderer(t)

	start := time.Now()
	r.OnStepStart("s1", domain.ActionWrite, start)
	r.OnStepComplete("s1", domain.StatusFailed, start.Add(time.Millisecond), errors.New("disk full"))

	out := buf.String()
	assert.Contains(t, out, "✗ failed")
	assert.Contains(t, out, "disk full")
}

func TestRenderer_SkippedStepWithoutStart(t *testing.T) {
	r, buf := newTestRenderer(t)

	r.OnStepComplete("s3", domain.StatusFailedSkipped, time.Now(), nil)

	assert.Contains(t, buf.String(), "skipped (dependency failed)")
}

func TestRenderer_OnRunComplete(t *testing.T) {
	r, buf := newTestRenderer(t)

	r.OnRunComplete(domain.RunSummary{
		RunID:     "run-1",
		Steps:     3,
		Succeeded: 2,
		Failed:    1,
		Duration:  120 * time.Millisecond,
		Findings: []domain.Finding{
			{Kind: domain.FindingFailedSteps, Detail: "1 of 3 steps failed"},
		},
		Remediation: "re-run with a smaller change",
	})

	out := buf.String()
	assert.Contains(t, out, "Run run-1: 2/3 step(s) succeeded")
	assert.Contains(t, out, "1 of 3 steps failed")
	assert.Contains(t, out, "Suggested next step: re-run with a smaller change")
}
