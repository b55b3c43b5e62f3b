package runtime

import (
	"context"

	"github.com/aretw0/quadrat/pkg/domain"
)

// runPipeline is the ordered, mutation-aware path a record travels before it
// is final. Stages run synchronously, in order, before the trial controller
// returns:
//
//  1. trial-level on_finish (may mutate)
//  2. experiment-level on_trial_finish (may mutate)
//  3. append to the Data Collection (record frozen from here)
//  4. experiment-level on_data_update (observes the finalized record)
func (e *Engine) runPipeline(ctx context.Context, desc *domain.Description, rec domain.Result) error {
	if desc.OnFinish != nil {
		if err := desc.OnFinish(ctx, rec); err != nil {
			return &domain.CallbackError{Hook: "on_finish", Err: err}
		}
	}
	if e.cfg.OnTrialFinish != nil {
		if err := e.cfg.OnTrialFinish(ctx, rec); err != nil {
			return &domain.CallbackError{Hook: "on_trial_finish", Err: err}
		}
	}

	e.data.Append(rec)
	final := e.data.Last()

	if e.cfg.OnDataUpdate != nil {
		e.cfg.OnDataUpdate(ctx, final)
	}

	if e.cfg.Hooks.OnTrialFinish != nil {
		e.cfg.Hooks.OnTrialFinish(ctx, &domain.TrialEvent{
			EventBase:  domain.EventBase{Timestamp: e.now(), Type: domain.EventTrialFinish},
			TrialType:  desc.Type,
			TrialIndex: final.TrialIndex(),
			Record:     final,
		})
	}
	e.logger.Debug("trial finalized", "trial_type", desc.Type, "trial_index", final.TrialIndex())
	return nil
}
