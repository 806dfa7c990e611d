package domain

import (
	"iter"
	"slices"

	"go.trai.ch/zerr"
)

// Plan is the directed acyclic graph of steps for one task invocation.
type Plan struct {
	steps          map[string]*Step
	order          []string // insertion order, for deterministic iteration
	executionOrder []string // populated by Validate
}

// NewPlan creates a new empty Plan.
func NewPlan() *Plan {
	return &Plan{
		steps: make(map[string]*Step),
	}
}

// AddStep adds a step to the plan.
// It returns an error if a step with the same id already exists.
func (p *Plan) AddStep(s *Step) error {
	if _, exists := p.steps[s.ID]; exists {
		return zerr.With(ErrDuplicateStepID, "step", s.ID)
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	p.steps[s.ID] = s
	p.order = append(p.order, s.ID)
	return nil
}

// GetStep returns the step with the given id.
func (p *Plan) GetStep(id string) (*Step, bool) {
	s, ok := p.steps[id]
	return s, ok
}

// StepCount returns the number of steps in the plan.
func (p *Plan) StepCount() int {
	return len(p.steps)
}

// Validate checks that every dependency reference resolves and that the
// dependency relation is acyclic, using a depth-first topological sort.
// It populates the execution order on success.
func (p *Plan) Validate() error {
	p.executionOrder = make([]string, 0, len(p.steps))
	visited := make(map[string]int, len(p.steps)) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		visited[id] = 1
		path = append(path, id)

		step, exists := p.steps[id]
		if !exists {
			return zerr.With(ErrMissingDependency, "dependency", id)
		}

		for _, dep := range step.DependsOn {
			if visited[dep] == 1 {
				return p.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[id] = 2
		path = path[:len(path)-1]
		p.executionOrder = append(p.executionOrder, id)
		return nil
	}

	// Iterate in insertion order so disconnected components are visited
	// deterministically and cycle errors name a stable path.
	for _, id := range p.order {
		if visited[id] == 0 {
			if err := visit(id); err != nil {
				return err
			}
		}
	}

	return nil
}

// buildCycleError constructs an error naming the offending step ids.
func (p *Plan) buildCycleError(path []string, dep string) error {
	start := slices.Index(path, dep)
	cyclePath := ""
	for i := start; i >= 0 && i < len(path); i++ {
		cyclePath += path[i] + " -> "
	}
	cyclePath += dep
	return zerr.With(ErrCycleDetected, "cycle", cyclePath)
}

// Walk returns an iterator over steps in execution order.
// It assumes Validate() has been called and returned nil.
func (p *Plan) Walk() iter.Seq[*Step] {
	return func(yield func(*Step) bool) {
		for _, id := range p.executionOrder {
			if !yield(p.steps[id]) {
				return
			}
		}
	}
}

// Steps returns an iterator over steps in insertion order.
func (p *Plan) Steps() iter.Seq[*Step] {
	return func(yield func(*Step) bool) {
		for _, id := range p.order {
			if !yield(p.steps[id]) {
				return
			}
		}
	}
}

// Dependents returns the ids of steps that directly depend on the given id.
func (p *Plan) Dependents(id string) []string {
	var out []string
	for _, candidate := range p.order {
		if slices.Contains(p.steps[candidate].DependsOn, id) {
			out = append(out, candidate)
		}
	}
	return out
}
