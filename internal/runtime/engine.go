package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
)

// Status reflects the engine's lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusFailed    Status = "failed"
)

// Config is the immutable global hook configuration threaded through the
// controllers by explicit reference. Node-level callbacks take precedence
// over the timeline defaults declared here.
type Config struct {
	// OnTrialFinish is the experiment-level data-pipeline stage, run after
	// the trial's own on_finish and before the record is finalized.
	OnTrialFinish domain.TrialFinishCallback

	// OnDataUpdate observes each record after it is finalized and appended.
	OnDataUpdate domain.DataCallback

	// TimelineStart and TimelineFinish are global defaults applied when a
	// node declares no callbacks of its own.
	TimelineStart  domain.TimelineCallback
	TimelineFinish domain.TimelineCallback

	// OnRunFinish fires once when the root timeline completes naturally.
	OnRunFinish func(ctx context.Context, data []domain.Result)

	// Hooks are observability callbacks; they cannot mutate records.
	Hooks domain.LifecycleHooks
}

// Engine is the top-level driver: it owns the single root timeline node,
// exposes pause/resume/abort, and reports completion of the entire run.
//
// Exactly one trial is ever in flight; the interpreter suspends while
// awaiting the presenter's completion signal and resumes when it fires.
type Engine struct {
	root   *Node
	runner ports.TrialRunner
	cfg    Config
	logger *slog.Logger
	rng    *rand.Rand
	now    func() time.Time

	scope *domain.Scope
	data  *domain.Collection

	mu         sync.Mutex
	status     Status
	paused     bool
	resumeCh   chan struct{}
	aborted    bool
	cancel     context.CancelFunc
	trialIndex int
	startTime  time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRand injects the random source used for sampling and order shuffles.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithClock injects the time source used for time_elapsed.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine expands the description and prepares a run. The runner is the
// external collaborator that presents trials.
func NewEngine(desc *domain.Description, runner ports.TrialRunner, cfg Config, opts ...Option) (*Engine, error) {
	if desc == nil {
		return nil, fmt.Errorf("timeline description is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("trial runner is required")
	}
	root, err := Expand(desc)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		root:   root,
		runner: runner,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:    time.Now,
		scope:  domain.NewScope(),
		data:   domain.NewCollection(),
		status: StatusPending,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run drives the root timeline to completion. It returns domain.ErrAborted
// if the run was aborted, or the first fatal error otherwise. Run must be
// called at most once.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.status != StatusPending {
		e.mu.Unlock()
		return fmt.Errorf("run already started (status %s)", e.status)
	}
	e.status = StatusRunning
	e.startTime = e.now()
	e.cancel = cancel
	e.mu.Unlock()

	err := e.runNode(ctx, e.root)

	e.mu.Lock()
	switch {
	case err == nil:
		e.status = StatusCompleted
	case e.aborted:
		e.status = StatusAborted
		err = domain.ErrAborted
	default:
		e.status = StatusFailed
	}
	e.mu.Unlock()

	if err == nil {
		e.logger.Info("run completed", "trials", e.data.Len())
		if e.cfg.OnRunFinish != nil {
			e.cfg.OnRunFinish(ctx, e.data.Values())
		}
	} else {
		e.logger.Info("run ended", "status", string(e.Status()), "err", err)
	}
	return err
}

// Pause suspends advancement after the current trial's data pipeline
// completes and before the next trial's parameters are resolved. Pausing
// never leaves a half-resolved parameter set.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused || e.terminalLocked() {
		return
	}
	e.paused = true
	e.resumeCh = make(chan struct{})
	e.logger.Debug("pause requested")
}

// Resume continues the iteration plan from where it left off.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return
	}
	e.paused = false
	close(e.resumeCh)
	e.resumeCh = nil
	e.logger.Debug("resumed")
}

// Abort discards any pending completion signal for the in-flight trial and
// unwinds the controller stack without firing remaining lifecycle callbacks.
func (e *Engine) Abort() {
	e.mu.Lock()
	if e.aborted || e.terminalLocked() {
		e.mu.Unlock()
		return
	}
	e.aborted = true
	cancel := e.cancel
	e.mu.Unlock()

	e.logger.Info("abort requested")
	if cancel != nil {
		cancel()
	}
	e.runner.ForceEnd()
}

// Status returns the engine's lifecycle state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning && e.paused {
		return StatusPaused
	}
	return e.status
}

// TrialIndex returns the number of trials started so far; the next trial
// receives this index.
func (e *Engine) TrialIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trialIndex
}

// ScopeSnapshot returns a read-only copy of the currently resolved variable
// scope.
func (e *Engine) ScopeSnapshot() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scope.Snapshot()
}

// Data returns the run's Data Collection.
func (e *Engine) Data() *domain.Collection {
	return e.data
}

// terminalLocked reports whether the run has ended. Caller holds e.mu.
func (e *Engine) terminalLocked() bool {
	switch e.status {
	case StatusCompleted, StatusAborted, StatusFailed:
		return true
	}
	return false
}

// gate blocks while the engine is paused. It is checked before each trial's
// parameters resolve.
func (e *Engine) gate(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.aborted {
			e.mu.Unlock()
			return domain.ErrAborted
		}
		if !e.paused {
			e.mu.Unlock()
			return ctx.Err()
		}
		ch := e.resumeCh
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			if e.wasAborted() {
				return domain.ErrAborted
			}
			return ctx.Err()
		case <-ch:
		}
	}
}

func (e *Engine) wasAborted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted
}

// nextTrialIndex assigns the next monotonically increasing, gap-free index.
func (e *Engine) nextTrialIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.trialIndex
	e.trialIndex++
	return idx
}

// elapsedMillis returns wall-clock milliseconds since the run started.
func (e *Engine) elapsedMillis() int64 {
	e.mu.Lock()
	start := e.startTime
	e.mu.Unlock()
	return e.now().Sub(start).Milliseconds()
}

// runNode dispatches to the trial or timeline controller.
func (e *Engine) runNode(ctx context.Context, n *Node) error {
	if n.isTrial {
		return e.runTrial(ctx, n)
	}
	return e.runTimeline(ctx, n)
}
