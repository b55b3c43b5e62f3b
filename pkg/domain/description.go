package domain

import (
	"context"
	"strconv"
)

// Sampling method constants for Description.Sample.
const (
	// SampleWithReplacement draws variable sets uniformly at random,
	// allowing repeats.
	SampleWithReplacement = "with-replacement"
	// SampleWithoutReplacement produces independent random permutations of
	// the variable sets, one per repetition.
	SampleWithoutReplacement = "without-replacement"
	// SampleFixedRepetitions replays the variable sets in declared order,
	// once per repetition.
	SampleFixedRepetitions = "fixed-repetitions"
	// SampleCustom delegates ordering to a user-supplied generator.
	SampleCustom = "custom"
)

// VariableSet is one named-value mapping of timeline variables. All sets
// declared on the same timeline must share an identical key set.
type VariableSet map[string]any

// SampleSpec selects how variable sets are assigned to iterations.
type SampleSpec struct {
	Method string `json:"method" yaml:"method" mapstructure:"method"`

	// Fn implements SampleCustom. It receives the number of declared
	// variable sets and the repetition count, and returns the explicit
	// sequence of set indices to iterate. Code-only; not loadable from YAML.
	Fn func(setCount, repetitions int) []int `json:"-" yaml:"-" mapstructure:"-"`
}

// Gate is a one-time predicate deciding whether a timeline entry executes.
// It sees the enclosing scope only; the node's own variables are not yet
// bound when it runs.
type Gate func(ctx context.Context) (bool, error)

// LoopGate is evaluated after a full iteration plan completes, with the
// results accumulated during this entry. Returning true repeats the entry.
type LoopGate func(ctx context.Context, data []Result) (bool, error)

// TimelineCallback fires exactly once per timeline entry, at start or finish.
type TimelineCallback func(ctx context.Context) error

// TrialStartCallback runs after parameter resolution and before the trial is
// handed to its presenter. It may mutate the resolved parameters in place.
type TrialStartCallback func(ctx context.Context, params map[string]any) error

// TrialFinishCallback is a data-pipeline stage. It may mutate the record in
// place; mutations are visible to all later stages.
type TrialFinishCallback func(ctx context.Context, rec Result) error

// DataCallback observes a finalized record. The record is already appended
// to the Collection, so mutations have no further effect.
type DataCallback func(ctx context.Context, rec Result)

// Description is the immutable declarative input to the engine: either a
// trial (Type set) or a container (Timeline set), never both.
type Description struct {
	// Type names the trial kind, resolved to a presenter by the host.
	// Mutually exclusive with Timeline.
	Type string `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`

	// Name is an optional label used in logs and events.
	Name string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`

	// Timeline holds child descriptions for a container node.
	Timeline []*Description `json:"timeline,omitempty" yaml:"timeline,omitempty" mapstructure:"timeline"`

	// Parameters are the trial-level parameters, resolved immediately before
	// the trial is handed to its presenter.
	Parameters Parameters `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"-"`

	// TimelineVariables is the ordered sequence of variable sets bound per
	// iteration and visible to descendant nodes via scoped lookup.
	TimelineVariables []VariableSet `json:"timeline_variables,omitempty" yaml:"timeline_variables,omitempty" mapstructure:"timeline_variables"`

	// Sample selects the variable-set assignment strategy. Nil means
	// fixed-repetitions.
	Sample *SampleSpec `json:"sample,omitempty" yaml:"sample,omitempty" mapstructure:"sample"`

	// Repetitions repeats the iteration plan. Zero means one.
	Repetitions int `json:"repetitions,omitempty" yaml:"repetitions,omitempty" mapstructure:"repetitions"`

	// RandomizeOrder shuffles the order of child descriptions (not variable
	// sets) independently for each pass over the children.
	RandomizeOrder bool `json:"randomize_order,omitempty" yaml:"randomize_order,omitempty" mapstructure:"randomize_order"`

	// Conditional gates entry into this timeline. Evaluated once per entry.
	Conditional Gate `json:"-" yaml:"-" mapstructure:"-"`

	// Loop decides, after the full iteration plan completes, whether to
	// repeat the entry.
	Loop LoopGate `json:"-" yaml:"-" mapstructure:"-"`

	// OnTimelineStart and OnTimelineFinish fire exactly once per entry,
	// independent of repetition and loop count.
	OnTimelineStart  TimelineCallback `json:"-" yaml:"-" mapstructure:"-"`
	OnTimelineFinish TimelineCallback `json:"-" yaml:"-" mapstructure:"-"`

	// OnStart and OnFinish are trial-level callbacks.
	OnStart  TrialStartCallback `json:"-" yaml:"-" mapstructure:"-"`
	OnFinish TrialFinishCallback `json:"-" yaml:"-" mapstructure:"-"`
}

// IsTrial reports whether the description declares a leaf trial.
func (d *Description) IsTrial() bool {
	return d.Type != "" && len(d.Timeline) == 0
}

// IsTimeline reports whether the description declares a container node.
func (d *Description) IsTimeline() bool {
	return len(d.Timeline) > 0 && d.Type == ""
}

// Validate checks the structural invariants of this description and its
// descendants: trial XOR timeline, and uniform key sets across the declared
// variable sets. It reports the first violation found, depth-first.
func (d *Description) Validate() error {
	return d.validate("timeline")
}

func (d *Description) validate(path string) error {
	if d.IsTrial() == d.IsTimeline() {
		return &MalformedDescriptionError{Path: path, Reason: "node must declare exactly one of type or timeline"}
	}
	if len(d.TimelineVariables) > 1 {
		keys := d.TimelineVariables[0]
		for i, set := range d.TimelineVariables[1:] {
			if !sameKeys(keys, set) {
				return &MalformedDescriptionError{
					Path:   path,
					Reason: "timeline_variables entries must share identical key sets (set " + strconv.Itoa(i+1) + " differs)",
				}
			}
		}
	}
	if d.Repetitions < 0 {
		return &MalformedDescriptionError{Path: path, Reason: "repetitions must be positive"}
	}
	if d.Sample != nil {
		switch d.Sample.Method {
		case SampleWithReplacement, SampleWithoutReplacement, SampleFixedRepetitions:
		case SampleCustom:
			if d.Sample.Fn == nil {
				return &MalformedDescriptionError{Path: path, Reason: "custom sample requires a generator function"}
			}
		default:
			return &MalformedDescriptionError{Path: path, Reason: "unknown sample method: " + d.Sample.Method}
		}
	}
	for i, child := range d.Timeline {
		if err := child.validate(path + "." + strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

func sameKeys(a, b VariableSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

