package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
)

const correctionPrompt = `A step in an automated coding run failed. Propose corrected
parameters for the same action so a single retry can succeed.

Action: %s
Parameters:
%s
Failure: %s

Respond with ONLY a JSON object mapping parameter names to corrected string
values. Keep the same parameter keys. Do not change the action.`

// requestCorrection asks the backend for corrected parameters after a step
// failure. The corrected params are re-validated before use; any backend or
// validation problem aborts the correction so the original failure stands.
func (s *Scheduler) requestCorrection(ctx context.Context, step *domain.Step, cause error) (domain.StepParams, map[string]string, error) {
	if s.backend == nil {
		return domain.StepParams{}, nil, zerr.New("no backend for correction")
	}

	prompt := fmt.Sprintf(correctionPrompt, step.Action, formatParams(step.RawParams), cause.Error())

	s.logger.Info(fmt.Sprintf("requesting correction for step %s (%s)", step.ID, step.Action))

	response, err := s.backend.Complete(ctx, prompt, ports.CompletionParams{
		Temperature: correctionTemperature,
		MaxTokens:   correctionMaxTokens,
	})
	if err != nil {
		return domain.StepParams{}, nil, zerr.Wrap(err, "correction request failed")
	}

	raw, err := parseCorrection(response)
	if err != nil {
		return domain.StepParams{}, nil, err
	}

	params, err := domain.ParseStepParams(step.Action, raw)
	if err != nil {
		return domain.StepParams{}, nil, zerr.Wrap(err, "corrected params invalid")
	}

	return params, raw, nil
}

const (
	correctionTemperature = 0.2
	correctionMaxTokens   = 2048
)

// parseCorrection extracts a flat string-valued JSON object from the
// backend's response, tolerating surrounding prose and code fences.
func parseCorrection(response string) (map[string]string, error) {
	payload := strings.TrimSpace(response)
	if start := strings.Index(payload, "{"); start >= 0 {
		if end := strings.LastIndex(payload, "}"); end > start {
			payload = payload[start : end+1]
		}
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, zerr.Wrap(err, "correction response is not a JSON object")
	}
	if len(decoded) == 0 {
		return nil, zerr.New("correction response has no parameters")
	}

	raw := make(map[string]string, len(decoded))
	for key, value := range decoded {
		switch v := value.(type) {
		case string:
			raw[key] = v
		case float64:
			raw[key] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
		case bool:
			raw[key] = fmt.Sprintf("%t", v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, zerr.Wrap(err, "unencodable correction value")
			}
			raw[key] = string(encoded)
		}
	}
	return raw, nil
}

func formatParams(raw map[string]string) string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", key, raw[key])
	}
	if b.Len() == 0 {
		return "  (none)\n"
	}
	return b.String()
}
