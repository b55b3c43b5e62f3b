package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/quadrat/pkg/domain"
)

// runTrial drives a single trial node to completion: resolve parameters,
// hand them to the presenter, suspend until its completion signal, then run
// the record through the data pipeline.
func (e *Engine) runTrial(ctx context.Context, n *Node) error {
	// Pause gate sits before resolution, so pausing never leaves a
	// half-resolved parameter set.
	if err := e.gate(ctx); err != nil {
		return err
	}

	// Resolution happens immediately before the trial is handed off, never
	// earlier, so bindings reflect the iteration currently in progress.
	params, err := e.resolveParameters(n.desc.Parameters)
	if err != nil {
		return err
	}

	idx := e.nextTrialIndex()
	desc := n.desc

	// The presenter dispatches on trial_type; it is a reserved key and
	// shadows any declared parameter of the same name.
	params[domain.FieldTrialType] = desc.Type

	// on_start may mutate the resolved parameters in place; it runs before
	// the presenter begins.
	if desc.OnStart != nil {
		if err := desc.OnStart(ctx, params); err != nil {
			return &domain.CallbackError{Hook: "on_start", Err: err}
		}
	}

	if e.cfg.Hooks.OnTrialStart != nil {
		e.cfg.Hooks.OnTrialStart(ctx, &domain.TrialEvent{
			EventBase:  domain.EventBase{Timestamp: e.now(), Type: domain.EventTrialStart},
			TrialType:  desc.Type,
			TrialIndex: idx,
		})
	}
	e.logger.Debug("trial start", "trial_type", desc.Type, "trial_index", idx)

	raw, err := e.awaitTrial(ctx, params)
	if err != nil {
		return err
	}

	rec := make(domain.Result, len(raw)+3)
	for k, v := range raw {
		rec[k] = v
	}
	rec[domain.FieldTrialType] = desc.Type
	rec[domain.FieldTrialIndex] = idx
	rec[domain.FieldTimeElapsed] = e.elapsedMillis()

	return e.runPipeline(ctx, desc, rec)
}

// awaitTrial is the explicit suspension point: the presenter receives a
// finish func resolved exactly once, and the interpreter blocks here until
// the completion signal fires or the run is aborted. An abort discards any
// pending signal.
func (e *Engine) awaitTrial(ctx context.Context, params map[string]any) (map[string]any, error) {
	done := make(chan map[string]any, 1)
	var once sync.Once
	finish := func(raw map[string]any) {
		once.Do(func() {
			done <- raw
		})
	}

	if err := e.runner.RunTrial(ctx, params, finish); err != nil {
		return nil, fmt.Errorf("trial runner: %w", err)
	}

	select {
	case raw := <-done:
		return raw, nil
	case <-ctx.Done():
		if e.wasAborted() {
			return nil, domain.ErrAborted
		}
		return nil, ctx.Err()
	}
}

// resolveParameters evaluates every declared parameter against the current
// scope: literals pass through, functions are invoked fresh, and variable
// references are looked up innermost-outward.
func (e *Engine) resolveParameters(params domain.Parameters) (map[string]any, error) {
	resolved := make(map[string]any, len(params))
	e.mu.Lock()
	scope := e.scope
	e.mu.Unlock()
	for name, spec := range params {
		v, err := spec.Resolve(scope)
		if err != nil {
			return nil, err
		}
		resolved[name] = v
	}
	return resolved, nil
}
