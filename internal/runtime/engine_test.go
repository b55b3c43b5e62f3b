package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoRunner completes every trial immediately, echoing the resolved
// parameters back as the raw record.
type echoRunner struct {
	mu     sync.Mutex
	params []map[string]any
}

func (r *echoRunner) RunTrial(_ context.Context, params map[string]any, finish ports.FinishFunc) error {
	r.mu.Lock()
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	r.params = append(r.params, cp)
	r.mu.Unlock()
	finish(map[string]any{"response": "ok"})
	return nil
}

func (r *echoRunner) ForceEnd() {}

func (r *echoRunner) seen() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.params...)
}

// holdRunner retains the finish func so the test controls when, and whether,
// each trial completes.
type holdRunner struct {
	started  chan ports.FinishFunc
	forceEnd chan struct{}
}

func newHoldRunner() *holdRunner {
	return &holdRunner{
		started:  make(chan ports.FinishFunc, 16),
		forceEnd: make(chan struct{}, 16),
	}
}

func (r *holdRunner) RunTrial(_ context.Context, _ map[string]any, finish ports.FinishFunc) error {
	r.started <- finish
	return nil
}

func (r *holdRunner) ForceEnd() {
	r.forceEnd <- struct{}{}
}

func newTestEngine(t *testing.T, desc *domain.Description, runner ports.TrialRunner, cfg Config) *Engine {
	t.Helper()
	eng, err := NewEngine(desc, runner, cfg, WithRand(testRand(1)))
	require.NoError(t, err)
	return eng
}

func trialTypes(data []domain.Result) []string {
	var out []string
	for _, rec := range data {
		out = append(out, rec[domain.FieldTrialType].(string))
	}
	return out
}

func TestEngine_LifecycleOncePerEntry(t *testing.T) {
	var starts, finishes int
	desc := &domain.Description{
		Timeline: []*domain.Description{
			{Type: "fixation"},
			{Type: "probe"},
		},
		Repetitions:     3,
		OnTimelineStart: func(context.Context) error { starts++; return nil },
		OnTimelineFinish: func(context.Context) error {
			finishes++
			return nil
		},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, Config{})
	require.NoError(t, eng.Run(context.Background()))

	// One entry into the timeline, regardless of repetitions or children.
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, finishes)
	assert.Equal(t, 6, eng.Data().Len())
	assert.Equal(t, StatusCompleted, eng.Status())
}

func TestEngine_TrialIndexGapFree(t *testing.T) {
	loops := 0
	desc := &domain.Description{
		Timeline: []*domain.Description{
			{Type: "intro"},
			{
				Timeline:    []*domain.Description{{Type: "inner"}},
				Repetitions: 2,
				Loop: func(_ context.Context, _ []domain.Result) (bool, error) {
					loops++
					return loops < 2, nil
				},
			},
			{Type: "outro"},
		},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, Config{})
	require.NoError(t, eng.Run(context.Background()))

	data := eng.Data().Values()
	require.Len(t, data, 6) // intro + 2x2 inner + outro
	for i, rec := range data {
		assert.Equal(t, i, rec.TrialIndex(), "index must be gap-free in finalization order")
		assert.GreaterOrEqual(t, rec[domain.FieldTimeElapsed].(int64), int64(0))
	}
	assert.Equal(t, []string{"intro", "inner", "inner", "inner", "inner", "outro"}, trialTypes(data))
}

func TestEngine_PipelineOrderAndMutation(t *testing.T) {
	var observed domain.Result
	desc := &domain.Description{
		Timeline: []*domain.Description{{
			Type: "probe",
			OnFinish: func(_ context.Context, rec domain.Result) error {
				rec["a"] = 1
				return nil
			},
		}},
	}
	cfg := Config{
		OnTrialFinish: func(_ context.Context, rec domain.Result) error {
			// Runs after the trial's own on_finish.
			assert.Equal(t, 1, rec["a"])
			rec["b"] = 2
			return nil
		},
		OnDataUpdate: func(_ context.Context, rec domain.Result) {
			observed = rec
		},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, cfg)
	require.NoError(t, eng.Run(context.Background()))

	require.NotNil(t, observed)
	assert.Equal(t, 1, observed["a"])
	assert.Equal(t, 2, observed["b"])

	// Mutating the observer's copy must not reach the stored record.
	observed["a"] = 99
	stored := eng.Data().Last()
	assert.Equal(t, 1, stored["a"])
}

func TestEngine_VariableResolutionPerIteration(t *testing.T) {
	desc := &domain.Description{
		Timeline: []*domain.Description{{
			Type: "probe",
			Parameters: domain.Parameters{
				"stimulus": domain.Var("word"),
			},
		}},
		TimelineVariables: threeSets(),
	}

	runner := &echoRunner{}
	eng := newTestEngine(t, desc, runner, Config{})
	require.NoError(t, eng.Run(context.Background()))

	seen := runner.seen()
	require.Len(t, seen, 3)
	assert.Equal(t, "RED", seen[0]["stimulus"])
	assert.Equal(t, "GREEN", seen[1]["stimulus"])
	assert.Equal(t, "BLUE", seen[2]["stimulus"])
}

func TestEngine_NestedScopeShadowing(t *testing.T) {
	desc := &domain.Description{
		TimelineVariables: []domain.VariableSet{{"color": "outer", "block": "A"}},
		Timeline: []*domain.Description{{
			TimelineVariables: []domain.VariableSet{{"color": "inner"}},
			Timeline: []*domain.Description{{
				Type: "probe",
				Parameters: domain.Parameters{
					"color": domain.Var("color"),
					"block": domain.Var("block"),
				},
			}},
		}},
	}

	runner := &echoRunner{}
	eng := newTestEngine(t, desc, runner, Config{})
	require.NoError(t, eng.Run(context.Background()))

	seen := runner.seen()
	require.Len(t, seen, 1)
	assert.Equal(t, "inner", seen[0]["color"], "innermost binding wins")
	assert.Equal(t, "A", seen[0]["block"], "outer bindings stay visible")
}

func TestEngine_MissingVariableIsFatal(t *testing.T) {
	desc := &domain.Description{
		Timeline: []*domain.Description{{
			Type:       "probe",
			Parameters: domain.Parameters{"stimulus": domain.Var("nope")},
		}},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, Config{})
	err := eng.Run(context.Background())

	var missing *domain.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "nope", missing.Name)
	assert.Equal(t, StatusFailed, eng.Status())
}

func TestEngine_DynamicParameterReinvoked(t *testing.T) {
	calls := 0
	desc := &domain.Description{
		Timeline: []*domain.Description{{
			Type: "probe",
			Parameters: domain.Parameters{
				"draw": domain.Func(func() any { calls++; return calls }),
			},
		}},
		Repetitions: 3,
	}

	runner := &echoRunner{}
	eng := newTestEngine(t, desc, runner, Config{})
	require.NoError(t, eng.Run(context.Background()))

	seen := runner.seen()
	require.Len(t, seen, 3)
	assert.Equal(t, 1, seen[0]["draw"])
	assert.Equal(t, 2, seen[1]["draw"])
	assert.Equal(t, 3, seen[2]["draw"])
}

func TestEngine_ConditionalFalseSkipsEverything(t *testing.T) {
	var started, finished bool
	desc := &domain.Description{
		Timeline: []*domain.Description{
			{
				Timeline:         []*domain.Description{{Type: "skipped"}},
				Conditional:      func(context.Context) (bool, error) { return false, nil },
				OnTimelineStart:  func(context.Context) error { started = true; return nil },
				OnTimelineFinish: func(context.Context) error { finished = true; return nil },
			},
			{Type: "after"},
		},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, Config{})
	require.NoError(t, eng.Run(context.Background()))

	assert.False(t, started, "a gated-off timeline must not fire on_timeline_start")
	assert.False(t, finished)
	assert.Equal(t, []string{"after"}, trialTypes(eng.Data().Values()))
}

func TestEngine_ConditionalEvaluatedOncePerEntry(t *testing.T) {
	condCalls := 0
	loops := 0
	desc := &domain.Description{
		Timeline: []*domain.Description{{
			Timeline: []*domain.Description{{Type: "inner"}},
			Conditional: func(context.Context) (bool, error) {
				condCalls++
				return true, nil
			},
			Loop: func(_ context.Context, _ []domain.Result) (bool, error) {
				loops++
				return loops < 3, nil
			},
		}},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, Config{})
	require.NoError(t, eng.Run(context.Background()))

	assert.Equal(t, 1, condCalls, "loop repeats must not re-evaluate the conditional")
	assert.Equal(t, 3, eng.Data().Len())
}

func TestEngine_LoopSeesEntryDataOnly(t *testing.T) {
	var snapshots [][]string
	desc := &domain.Description{
		Timeline: []*domain.Description{
			{Type: "before"},
			{
				Timeline: []*domain.Description{{Type: "drill"}},
				Loop: func(_ context.Context, data []domain.Result) (bool, error) {
					snapshots = append(snapshots, trialTypes(data))
					return len(snapshots) < 2, nil
				},
			},
		},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, Config{})
	require.NoError(t, eng.Run(context.Background()))

	require.Len(t, snapshots, 2)
	assert.Equal(t, []string{"drill"}, snapshots[0], "records from outside the entry are excluded")
	assert.Equal(t, []string{"drill", "drill"}, snapshots[1], "loop data accumulates across repeats")
}

func TestEngine_LoopRepeatDoesNotRefireStart(t *testing.T) {
	starts := 0
	loops := 0
	desc := &domain.Description{
		Timeline: []*domain.Description{{
			Timeline:        []*domain.Description{{Type: "inner"}},
			OnTimelineStart: func(context.Context) error { starts++; return nil },
			Loop: func(_ context.Context, _ []domain.Result) (bool, error) {
				loops++
				return loops < 2, nil
			},
		}},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, Config{})
	require.NoError(t, eng.Run(context.Background()))

	assert.Equal(t, 1, starts)
	assert.Equal(t, 2, eng.Data().Len())
}

func TestEngine_CallbackErrorWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	desc := &domain.Description{
		Timeline: []*domain.Description{{
			Type:     "probe",
			OnFinish: func(context.Context, domain.Result) error { return cause },
		}},
	}

	eng := newTestEngine(t, desc, &echoRunner{}, Config{})
	err := eng.Run(context.Background())

	var cbErr *domain.CallbackError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, "on_finish", cbErr.Hook)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StatusFailed, eng.Status())
	assert.Equal(t, 0, eng.Data().Len(), "a failed pipeline stage must not finalize the record")
}

func TestEngine_OnStartMutatesParameters(t *testing.T) {
	desc := &domain.Description{
		Timeline: []*domain.Description{{
			Type:       "probe",
			Parameters: domain.Parameters{"stimulus": domain.Value("raw")},
			OnStart: func(_ context.Context, params map[string]any) error {
				params["stimulus"] = "amended"
				return nil
			},
		}},
	}

	runner := &echoRunner{}
	eng := newTestEngine(t, desc, runner, Config{})
	require.NoError(t, eng.Run(context.Background()))

	require.Len(t, runner.seen(), 1)
	assert.Equal(t, "amended", runner.seen()[0]["stimulus"])
}

func TestEngine_AbortDiscardsInFlightTrial(t *testing.T) {
	desc := &domain.Description{
		Timeline: []*domain.Description{
			{Type: "first"},
			{Type: "second"},
		},
	}
	var finished bool
	cfg := Config{
		TimelineFinish: func(context.Context) error { finished = true; return nil },
		OnRunFinish:    func(context.Context, []domain.Result) { t.Error("OnRunFinish must not fire on abort") },
	}

	runner := newHoldRunner()
	eng := newTestEngine(t, desc, runner, cfg)

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(context.Background()) }()

	// Complete the first trial, then abort while the second is in flight.
	finish1 := <-runner.started
	finish1(map[string]any{"rt": 320})
	finish2 := <-runner.started

	eng.Abort()

	select {
	case err := <-runErr:
		require.ErrorIs(t, err, domain.ErrAborted)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Abort")
	}

	select {
	case <-runner.forceEnd:
	default:
		t.Fatal("Abort must call ForceEnd on the trial runner")
	}

	// Late completion signal is discarded.
	finish2(map[string]any{"rt": 999})

	data := eng.Data().Values()
	require.Len(t, data, 1, "only finalized trials survive an abort")
	assert.Equal(t, "first", data[0][domain.FieldTrialType])
	assert.Equal(t, StatusAborted, eng.Status())
	assert.False(t, finished, "on_timeline_finish must not fire after abort")
}

func TestEngine_PauseHoldsBeforeNextTrial(t *testing.T) {
	desc := &domain.Description{
		Timeline: []*domain.Description{
			{Type: "first"},
			{Type: "second"},
		},
	}

	runner := newHoldRunner()
	eng := newTestEngine(t, desc, runner, Config{})

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(context.Background()) }()

	finish1 := <-runner.started
	eng.Pause()
	finish1(map[string]any{"rt": 100})

	// The first trial's pipeline completes, but the second trial must not
	// start while paused.
	select {
	case <-runner.started:
		t.Fatal("second trial started while paused")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, StatusPaused, eng.Status())
	assert.Equal(t, 1, eng.Data().Len())

	eng.Resume()
	select {
	case finish2 := <-runner.started:
		finish2(map[string]any{"rt": 200})
	case <-time.After(2 * time.Second):
		t.Fatal("second trial did not start after Resume")
	}

	require.NoError(t, <-runErr)
	assert.Equal(t, 2, eng.Data().Len())
	assert.Equal(t, StatusCompleted, eng.Status())
}

func TestEngine_PauseWhileIdempotent(t *testing.T) {
	eng := newTestEngine(t, &domain.Description{
		Timeline: []*domain.Description{{Type: "only"}},
	}, &echoRunner{}, Config{})

	require.NoError(t, eng.Run(context.Background()))

	// Terminal runs ignore pause and resume.
	eng.Pause()
	eng.Resume()
	eng.Abort()
	assert.Equal(t, StatusCompleted, eng.Status())
}

func TestEngine_RunTwiceRejected(t *testing.T) {
	eng := newTestEngine(t, &domain.Description{
		Timeline: []*domain.Description{{Type: "only"}},
	}, &echoRunner{}, Config{})

	require.NoError(t, eng.Run(context.Background()))
	err := eng.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestEngine_OnRunFinishSeesAllData(t *testing.T) {
	var final []domain.Result
	cfg := Config{
		OnRunFinish: func(_ context.Context, data []domain.Result) { final = data },
	}
	eng := newTestEngine(t, &domain.Description{
		Timeline:    []*domain.Description{{Type: "probe"}},
		Repetitions: 2,
	}, &echoRunner{}, cfg)

	require.NoError(t, eng.Run(context.Background()))
	require.Len(t, final, 2)
	assert.Equal(t, 0, final[0].TrialIndex())
	assert.Equal(t, 1, final[1].TrialIndex())
}

func TestEngine_MalformedDescriptionRejected(t *testing.T) {
	_, err := NewEngine(&domain.Description{
		Type:     "probe",
		Timeline: []*domain.Description{{Type: "inner"}},
	}, &echoRunner{}, Config{})

	var malformed *domain.MalformedDescriptionError
	require.ErrorAs(t, err, &malformed)
}

func TestEngine_ClockDrivesTimeElapsed(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 250 * time.Millisecond)
	}

	eng, err := NewEngine(&domain.Description{
		Timeline: []*domain.Description{{Type: "probe"}},
	}, &echoRunner{}, Config{}, WithClock(clock), WithRand(testRand(1)))
	require.NoError(t, err)
	require.NoError(t, eng.Run(context.Background()))

	rec := eng.Data().Last()
	elapsed := rec[domain.FieldTimeElapsed].(int64)
	assert.Greater(t, elapsed, int64(0))
	assert.Equal(t, int64(0), elapsed%250, "elapsed time derives from the injected clock")
}
