package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/quadrat/pkg/ports"
	"github.com/aretw0/quadrat/pkg/schema"
)

// Registry maps trial types to their presenter implementations. It
// implements ports.TrialRunner itself, dispatching on the resolved
// trial_type parameter.
type Registry struct {
	mu       sync.RWMutex
	runners  map[string]ports.TrialRunner
	schemas  map[string]schema.Schema
	inFlight ports.TrialRunner
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]ports.TrialRunner),
		schemas: make(map[string]schema.Schema),
	}
}

// Register adds a presenter for a trial type.
// If a presenter with the same type exists, it is overwritten.
func (r *Registry) Register(trialType string, runner ports.TrialRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[trialType] = runner
}

// RegisterWithSchema adds a presenter together with a parameter schema. The
// resolved parameters are validated before each dispatch; a violation is
// fatal to the run.
func (r *Registry) RegisterWithSchema(trialType string, runner ports.TrialRunner, s schema.Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[trialType] = runner
	r.schemas[trialType] = s
}

// RunTrial dispatches the trial to the presenter registered for its type.
// Returns an error if no presenter is registered.
func (r *Registry) RunTrial(ctx context.Context, params map[string]any, finish ports.FinishFunc) error {
	trialType, _ := params["trial_type"].(string)

	r.mu.Lock()
	runner, ok := r.runners[trialType]
	s := r.schemas[trialType]
	if ok {
		r.inFlight = runner
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("no presenter registered for trial type: %s", trialType)
	}
	if err := schema.Validate(s, params); err != nil {
		return fmt.Errorf("trial type %s: %w", trialType, err)
	}
	return runner.RunTrial(ctx, params, finish)
}

// ForceEnd forwards the abort signal to the presenter currently in flight.
func (r *Registry) ForceEnd() {
	r.mu.RLock()
	runner := r.inFlight
	r.mu.RUnlock()
	if runner != nil {
		runner.ForceEnd()
	}
}
