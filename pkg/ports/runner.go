package ports

import "context"

// FinishFunc delivers a trial's raw result mapping to the engine. The engine
// guarantees that calls after the first, and calls arriving after an abort,
// are discarded.
type FinishFunc func(raw map[string]any)

// TrialRunner is the external collaborator that presents a trial's stimulus
// and decides when the trial completes (participant response, elapsed timer,
// or an explicit end-trial call).
//
// RunTrial must arrange for finish to be invoked exactly once per trial. It
// may call finish before returning (synchronous trials) or retain it and
// call it later from another goroutine (asynchronous completion). A non-nil
// error from RunTrial is fatal to the run.
//
// ForceEnd supports abort handling: it must cause any in-flight trial to
// stop presenting promptly. The pending completion signal is discarded by
// the engine, so implementations need not suppress it.
type TrialRunner interface {
	RunTrial(ctx context.Context, params map[string]any, finish FinishFunc) error
	ForceEnd()
}

// TrialRunnerFunc adapts a function to the TrialRunner interface, with a
// no-op ForceEnd. Useful for synchronous trials and tests.
type TrialRunnerFunc func(ctx context.Context, params map[string]any, finish FinishFunc) error

func (f TrialRunnerFunc) RunTrial(ctx context.Context, params map[string]any, finish FinishFunc) error {
	return f(ctx, params, finish)
}

func (f TrialRunnerFunc) ForceEnd() {}
