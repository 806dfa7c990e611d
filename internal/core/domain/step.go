package domain

import (
	"strconv"
	"time"

	"go.trai.ch/zerr"
)

// ActionKind is the closed vocabulary of step actions a planner may emit.
type ActionKind string

const (
	// ActionFetchContext asks the source index for additional context.
	ActionFetchContext ActionKind = "fetch-context"
	// ActionRead reads a file from the source tree.
	ActionRead ActionKind = "read"
	// ActionWrite writes a whole file. The only mutating action besides patch.
	ActionWrite ActionKind = "write"
	// ActionPatch applies a find/replace edit to a file.
	ActionPatch ActionKind = "patch"
	// ActionAnalyze runs an LLM analysis over previously gathered material.
	ActionAnalyze ActionKind = "run-analysis"
	// ActionVerify asks the backend to check an earlier step's output.
	ActionVerify ActionKind = "verify"
)

// KnownAction reports whether kind is part of the closed action vocabulary.
func KnownAction(kind ActionKind) bool {
	switch kind {
	case ActionFetchContext, ActionRead, ActionWrite, ActionPatch, ActionAnalyze, ActionVerify:
		return true
	default:
		return false
	}
}

// Mutating reports whether the action is permitted to touch the file system.
func (k ActionKind) Mutating() bool {
	return k == ActionWrite || k == ActionPatch
}

// StepStatus is the lifecycle state of a step. Transitions are owned
// exclusively by the scheduler.
type StepStatus string

const (
	// StatusPending indicates the step is waiting for its dependencies.
	StatusPending StepStatus = "Pending"
	// StatusReady indicates all dependencies succeeded and the step may run.
	StatusReady StepStatus = "Ready"
	// StatusRunning indicates the step is currently executing.
	StatusRunning StepStatus = "Running"
	// StatusSucceeded indicates the step finished successfully.
	StatusSucceeded StepStatus = "Succeeded"
	// StatusFailed indicates the step failed terminally (after the single
	// self-correction retry, if one was attempted).
	StatusFailed StepStatus = "Failed"
	// StatusFailedSkipped indicates the step never ran because a dependency
	// failed. The failure is propagated, not executed.
	StatusFailedSkipped StepStatus = "FailedSkipped"
	// StatusFailedCancelled indicates the step never ran because the run
	// was cancelled.
	StatusFailedCancelled StepStatus = "FailedCancelled"
)

// Terminal reports whether the status is an end state.
func (s StepStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusFailedSkipped, StatusFailedCancelled:
		return true
	default:
		return false
	}
}

// StepParams is the tagged parameter variant for a step, keyed by ActionKind.
// Exactly one per-kind struct is populated.
type StepParams struct {
	FetchContext *FetchContextParams
	Read         *ReadParams
	Write        *WriteParams
	Patch        *PatchParams
	Analyze      *AnalyzeParams
	Verify       *VerifyParams
}

// FetchContextParams parameterize a fetch-context step.
type FetchContextParams struct {
	Query    string
	MaxFiles int
}

// ReadParams parameterize a read step.
type ReadParams struct {
	Path string
}

// WriteParams parameterize a write step.
type WriteParams struct {
	Path    string
	Content string
}

// PatchParams parameterize a patch step.
type PatchParams struct {
	Path    string
	Find    string
	Replace string
}

// AnalyzeParams parameterize a run-analysis step.
type AnalyzeParams struct {
	Prompt string
}

// VerifyParams parameterize a verify step.
type VerifyParams struct {
	StepID      string
	Description string
}

// TargetPath returns the file path a mutating step targets, or "" for
// non-mutating actions. The scheduler uses it to serialize writes.
func (p StepParams) TargetPath() string {
	switch {
	case p.Write != nil:
		return p.Write.Path
	case p.Patch != nil:
		return p.Patch.Path
	default:
		return ""
	}
}

// ReadPath returns the path a read step consumes, or "".
func (p StepParams) ReadPath() string {
	if p.Read != nil {
		return p.Read.Path
	}
	return ""
}

// ParseStepParams validates a raw parameter map against the typed shape for
// the given action kind. Unknown kinds and missing required keys are
// rejected rather than coerced.
func ParseStepParams(kind ActionKind, raw map[string]string) (StepParams, error) {
	need := func(key string) (string, error) {
		v, ok := raw[key]
		if !ok || v == "" {
			err := zerr.With(ErrInvalidStepParams, "action", string(kind))
			return "", zerr.With(err, "missing", key)
		}
		return v, nil
	}

	var params StepParams
	switch kind {
	case ActionFetchContext:
		query, err := need("query")
		if err != nil {
			return params, err
		}
		maxFiles := 0
		if v, ok := raw["max_files"]; ok && v != "" {
			maxFiles, err = strconv.Atoi(v)
			if err != nil || maxFiles < 0 {
				invalid := zerr.With(ErrInvalidStepParams, "action", string(kind))
				return params, zerr.With(invalid, "invalid", "max_files")
			}
		}
		params.FetchContext = &FetchContextParams{Query: query, MaxFiles: maxFiles}
	case ActionRead:
		path, err := need("path")
		if err != nil {
			return params, err
		}
		params.Read = &ReadParams{Path: path}
	case ActionWrite:
		path, err := need("path")
		if err != nil {
			return params, err
		}
		content, err := need("content")
		if err != nil {
			return params, err
		}
		params.Write = &WriteParams{Path: path, Content: content}
	case ActionPatch:
		path, err := need("path")
		if err != nil {
			return params, err
		}
		find, err := need("find")
		if err != nil {
			return params, err
		}
		// An empty replacement is a valid deletion.
		params.Patch = &PatchParams{Path: path, Find: find, Replace: raw["replace"]}
	case ActionAnalyze:
		prompt, err := need("prompt")
		if err != nil {
			return params, err
		}
		params.Analyze = &AnalyzeParams{Prompt: prompt}
	case ActionVerify:
		description, err := need("description")
		if err != nil {
			return params, err
		}
		// The step reference may be omitted when the verify step has
		// exactly one dependency.
		params.Verify = &VerifyParams{StepID: raw["step"], Description: description}
	default:
		return params, zerr.With(ErrUnknownAction, "action", string(kind))
	}

	return params, nil
}

// Step is a single typed unit of work in a cascade plan.
// DependsOn holds references to other step ids; a step never owns the steps
// it depends on.
type Step struct {
	ID        string
	Action    ActionKind
	Params    StepParams
	RawParams map[string]string
	DependsOn []string

	Status    StepStatus
	Result    string
	Error     string
	Corrected bool
	StartedAt time.Time
	EndedAt   time.Time
}
