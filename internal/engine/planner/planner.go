// Package planner turns a task description plus context block into a
// validated step dependency plan by querying the completion backend.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
)

const planPrompt = `You are a coding task planner. Decompose the task below
into a JSON array of steps. Each step is an object with:
  "id": unique short string,
  "action": one of "fetch-context", "read", "write", "patch", "run-analysis", "verify",
  "params": object of string parameters for the action,
  "depends_on": array of step ids this step needs first.

Required params per action:
  fetch-context: query
  read: path
  write: path, content
  patch: path, find, replace
  run-analysis: prompt
  verify: step, description

Respond with ONLY the JSON array.

Task:
%s

Context:
%s
`

const retryAddendum = "\nPrevious response was invalid, reason: %s\nRespond again with ONLY a valid JSON array of steps.\n"

// Planner produces validated plans from the backend.
type Planner struct {
	backend ports.Backend
	logger  ports.Logger

	temperature float64
	maxTokens   int
}

// NewPlanner creates a Planner using the given backend settings.
func NewPlanner(backend ports.Backend, logger ports.Logger, cfg domain.BackendConfig) *Planner {
	return &Planner{
		backend:     backend,
		logger:      logger,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// wireStep is the JSON shape the backend is asked to produce.
type wireStep struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params"`
	DependsOn []string       `json:"depends_on"`
}

// Plan sends one planning request and parses the result into a validated
// DAG. A malformed or invalid response is retried exactly once with the
// failure reason appended; a second failure is fatal to the run.
func (p *Planner) Plan(ctx context.Context, taskText, contextBlock string) (*domain.Plan, error) {
	prompt := fmt.Sprintf(planPrompt, taskText, contextBlock)

	plan, err := p.requestAndParse(ctx, prompt)
	if err == nil {
		return plan, nil
	}

	p.logger.Warn(fmt.Sprintf("plan rejected, retrying once: %v", err))

	plan, retryErr := p.requestAndParse(ctx, prompt+fmt.Sprintf(retryAddendum, err.Error()))
	if retryErr != nil {
		return nil, errors.Join(domain.ErrPlanningFailed, retryErr)
	}
	return plan, nil
}

func (p *Planner) requestAndParse(ctx context.Context, prompt string) (*domain.Plan, error) {
	raw, err := p.backend.Complete(ctx, prompt, ports.CompletionParams{
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes the backend's response into a validated Plan.
// All validation rules must pass before the plan is accepted: known action
// kinds only, typed parameters, no dangling dependency references, and an
// acyclic dependency relation.
func Parse(response string) (*domain.Plan, error) {
	payload := extractJSON(response)

	var wire []wireStep
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, zerr.Wrap(err, "response is not a JSON step array")
	}
	if len(wire) == 0 {
		return nil, domain.ErrEmptyPlan
	}

	plan := domain.NewPlan()
	for _, ws := range wire {
		if ws.ID == "" {
			return nil, zerr.With(domain.ErrInvalidStepParams, "missing", "id")
		}

		kind := domain.ActionKind(ws.Action)
		if !domain.KnownAction(kind) {
			err := zerr.With(domain.ErrUnknownAction, "step", ws.ID)
			return nil, zerr.With(err, "action", ws.Action)
		}

		raw := stringifyParams(ws.Params)
		params, err := domain.ParseStepParams(kind, raw)
		if err != nil {
			return nil, zerr.With(err, "step", ws.ID)
		}

		step := &domain.Step{
			ID:        ws.ID,
			Action:    kind,
			Params:    params,
			RawParams: raw,
			DependsOn: ws.DependsOn,
			Status:    domain.StatusPending,
		}
		if err := plan.AddStep(step); err != nil {
			return nil, err
		}
	}

	// Validate resolves dangling references and rejects cycles, naming the
	// offending ids.
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}

// stringifyParams flattens the duck-typed parameter values the backend
// returns into strings. Nested shapes are rejected later by the typed
// per-kind validation.
func stringifyParams(params map[string]any) map[string]string {
	out := make(map[string]string, len(params))
	for key, value := range params {
		switch v := value.(type) {
		case string:
			out[key] = v
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(v)
		case nil:
			// skip
		default:
			data, err := json.Marshal(v)
			if err == nil {
				out[key] = string(data)
			}
		}
	}
	return out
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost JSON array in the response.
func extractJSON(response string) string {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if end := strings.LastIndex(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}
