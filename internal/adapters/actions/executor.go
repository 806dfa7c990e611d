// Package actions executes the individual steps of a cascade plan.
package actions

import (
	"context"
	"fmt"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
)

// ContextFetcher serves fetch-context steps from the source index.
type ContextFetcher interface {
	Build(taskText string, maxFiles, tokenBudget int) string
}

const analysisPrompt = `%s

Material from earlier steps:
%s`

const verifyPrompt = `Check whether the following output satisfies the requirement.
Answer with a single line starting with PASS or FAIL, followed by a short reason.

Requirement: %s

Output:
%s`

// Executor implements ports.StepExecutor for one cascade run. The plan is
// injected so analysis and verify steps can see their dependencies' results.
type Executor struct {
	fs      ports.FileSystem
	backend ports.Backend
	fetcher ContextFetcher
	plan    *domain.Plan
	cfg     domain.ContextConfig
}

// NewExecutor creates a step executor bound to one run's plan.
func NewExecutor(
	fs ports.FileSystem,
	backend ports.Backend,
	fetcher ContextFetcher,
	plan *domain.Plan,
	cfg domain.ContextConfig,
) *Executor {
	return &Executor{
		fs:      fs,
		backend: backend,
		fetcher: fetcher,
		plan:    plan,
		cfg:     cfg,
	}
}

var _ ports.StepExecutor = (*Executor)(nil)

// Execute dispatches on the step's action kind and returns its result
// payload. Only write and patch touch the file system.
func (e *Executor) Execute(ctx context.Context, step *domain.Step) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch step.Action {
	case domain.ActionFetchContext:
		return e.fetchContext(step)
	case domain.ActionRead:
		return e.read(step)
	case domain.ActionWrite:
		return e.write(step)
	case domain.ActionPatch:
		return e.patch(step)
	case domain.ActionAnalyze:
		return e.analyze(ctx, step)
	case domain.ActionVerify:
		return e.verify(ctx, step)
	default:
		return "", zerr.With(domain.ErrUnknownAction, "action", string(step.Action))
	}
}

func (e *Executor) fetchContext(step *domain.Step) (string, error) {
	params := step.Params.FetchContext
	maxFiles := params.MaxFiles
	if maxFiles <= 0 {
		maxFiles = e.cfg.MaxFiles
	}
	return e.fetcher.Build(params.Query, maxFiles, e.cfg.TokenBudget), nil
}

func (e *Executor) read(step *domain.Step) (string, error) {
	content, err := e.fs.Read(step.Params.Read.Path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (e *Executor) write(step *domain.Step) (string, error) {
	params := step.Params.Write
	if err := e.fs.Write(params.Path, []byte(params.Content)); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(params.Content), params.Path), nil
}

// patch applies a single find/replace edit. The find text must occur in the
// file; an empty replacement deletes the matched text.
func (e *Executor) patch(step *domain.Step) (string, error) {
	params := step.Params.Patch

	content, err := e.fs.Read(params.Path)
	if err != nil {
		return "", err
	}

	text := string(content)
	if !strings.Contains(text, params.Find) {
		return "", zerr.With(zerr.Wrap(domain.ErrPatchNoMatch, "patch not applied"), "path", params.Path)
	}

	patched := strings.Replace(text, params.Find, params.Replace, 1)
	if err := e.fs.Write(params.Path, []byte(patched)); err != nil {
		return "", err
	}

	return fmt.Sprintf("patched %s (%+d bytes)", params.Path, len(patched)-len(text)), nil
}

func (e *Executor) analyze(ctx context.Context, step *domain.Step) (string, error) {
	prompt := step.Params.Analyze.Prompt
	if material := e.dependencyResults(step); material != "" {
		prompt = fmt.Sprintf(analysisPrompt, prompt, material)
	}
	return e.backend.Complete(ctx, prompt, ports.CompletionParams{})
}

// verify asks the backend to judge a dependency's output. A FAIL verdict is
// a step failure, which makes the scheduler attempt the corrected retry and
// then propagate like any other failure.
func (e *Executor) verify(ctx context.Context, step *domain.Step) (string, error) {
	params := step.Params.Verify

	target := params.StepID
	if target == "" && len(step.DependsOn) == 1 {
		target = step.DependsOn[0]
	}

	subject, ok := e.plan.GetStep(target)
	if !ok {
		return "", zerr.With(domain.ErrStepNotFound, "step", target)
	}

	requirement := params.Description
	if requirement == "" {
		requirement = fmt.Sprintf("the %s step %q completed correctly", subject.Action, subject.ID)
	}

	verdict, err := e.backend.Complete(ctx, fmt.Sprintf(verifyPrompt, requirement, subject.Result), ports.CompletionParams{})
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(strings.TrimSpace(verdict), "FAIL") {
		failed := zerr.With(domain.ErrVerificationFailed, "step", subject.ID)
		return verdict, zerr.With(failed, "verdict", strings.TrimSpace(verdict))
	}
	return verdict, nil
}

// dependencyResults concatenates the results of the step's dependencies in
// declaration order.
func (e *Executor) dependencyResults(step *domain.Step) string {
	var b strings.Builder
	for _, dep := range step.DependsOn {
		depStep, ok := e.plan.GetStep(dep)
		if !ok || depStep.Result == "" {
			continue
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", dep, depStep.Result)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
