package quadrat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/quadrat/internal/runtime"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
)

// Status reflects the lifecycle of an experiment run.
type Status = runtime.Status

const (
	StatusPending   = runtime.StatusPending
	StatusRunning   = runtime.StatusRunning
	StatusPaused    = runtime.StatusPaused
	StatusCompleted = runtime.StatusCompleted
	StatusAborted   = runtime.StatusAborted
	StatusFailed    = runtime.StatusFailed
)

// Experiment is the high-level entry point for the Quadrat library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Experiment struct {
	engine *runtime.Engine
	cfg    runtime.Config
	logger *slog.Logger
	rng    *rand.Rand
	clock  func() time.Time
	Name   string
}

// Option defines a functional option for configuring the Experiment.
type Option func(*Experiment)

// WithLifecycleHooks registers observability hooks. Repeated use stacks
// hook sets rather than replacing them.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(x *Experiment) {
		x.cfg.Hooks = domain.MergeHooks(x.cfg.Hooks, hooks)
	}
}

// WithLogger sets a custom structured logger for the experiment.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Experiment) {
		x.logger = logger
	}
}

// WithName sets a descriptive label used to enrich log records.
func WithName(name string) Option {
	return func(x *Experiment) {
		x.Name = name
	}
}

// WithRand injects the random source used for sampling and order
// randomization. Useful for reproducible runs.
func WithRand(rng *rand.Rand) Option {
	return func(x *Experiment) {
		x.rng = rng
	}
}

// WithSeed is shorthand for WithRand with a deterministic PCG source.
func WithSeed(seed uint64) Option {
	return func(x *Experiment) {
		x.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithClock injects the time source used for the time_elapsed field.
func WithClock(now func() time.Time) Option {
	return func(x *Experiment) {
		x.clock = now
	}
}

// WithOnTrialFinish registers the experiment-level data-pipeline stage. It
// runs after each trial's own on_finish and may mutate the record.
func WithOnTrialFinish(cb domain.TrialFinishCallback) Option {
	return func(x *Experiment) {
		x.cfg.OnTrialFinish = cb
	}
}

// WithOnDataUpdate registers an observer of each finalized record.
func WithOnDataUpdate(cb domain.DataCallback) Option {
	return func(x *Experiment) {
		x.cfg.OnDataUpdate = cb
	}
}

// WithTimelineDefaults sets global on_timeline_start / on_timeline_finish
// callbacks, applied to timeline nodes that declare none of their own.
func WithTimelineDefaults(start, finish domain.TimelineCallback) Option {
	return func(x *Experiment) {
		x.cfg.TimelineStart = start
		x.cfg.TimelineFinish = finish
	}
}

// WithOnRunFinish registers a callback fired once when the root timeline
// completes naturally. It does not fire on abort or failure.
func WithOnRunFinish(cb func(ctx context.Context, data []domain.Result)) Option {
	return func(x *Experiment) {
		x.cfg.OnRunFinish = cb
	}
}

// New initializes an Experiment from a timeline description. The runner is
// the presenter collaborator that shows trials to the participant and
// reports their observations back.
//
// The description is validated eagerly: a malformed tree is rejected here,
// before any trial runs.
func New(desc *domain.Description, runner ports.TrialRunner, opts ...Option) (*Experiment, error) {
	if desc == nil {
		return nil, fmt.Errorf("timeline description is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("trial runner is required")
	}

	x := &Experiment{}
	for _, opt := range opts {
		opt(x)
	}

	if x.logger == nil {
		x.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if x.Name != "" {
		x.logger = x.logger.With("experiment", x.Name)
	}

	engineOpts := []runtime.Option{runtime.WithLogger(x.logger)}
	if x.rng != nil {
		engineOpts = append(engineOpts, runtime.WithRand(x.rng))
	}
	if x.clock != nil {
		engineOpts = append(engineOpts, runtime.WithClock(x.clock))
	}

	engine, err := runtime.NewEngine(desc, runner, x.cfg, engineOpts...)
	if err != nil {
		return nil, err
	}
	x.engine = engine
	return x, nil
}

// Run drives the root timeline to completion, blocking until the run ends.
// It returns domain.ErrAborted if the run was aborted, or the first fatal
// error otherwise. Run must be called at most once per Experiment.
func (x *Experiment) Run(ctx context.Context) error {
	return x.engine.Run(ctx)
}

// Pause suspends advancement at the next trial boundary: the in-flight
// trial completes its data pipeline, and no further trial starts until
// Resume is called.
func (x *Experiment) Pause() {
	x.engine.Pause()
}

// Resume continues a paused run from where it left off.
func (x *Experiment) Resume() {
	x.engine.Resume()
}

// Abort terminates the run immediately. The in-flight trial's completion
// signal is discarded and no further lifecycle callbacks fire.
func (x *Experiment) Abort() {
	x.engine.Abort()
}

// Status returns the run's lifecycle state.
func (x *Experiment) Status() Status {
	return x.engine.Status()
}

// Data returns the run's Data Collection.
func (x *Experiment) Data() *domain.Collection {
	return x.engine.Data()
}

// TrialIndex returns the number of trials started so far.
func (x *Experiment) TrialIndex() int {
	return x.engine.TrialIndex()
}

// Scope returns a read-only snapshot of the currently bound timeline
// variables, innermost bindings winning.
func (x *Experiment) Scope() map[string]any {
	return x.engine.ScopeSnapshot()
}
