package dsl

import (
	"github.com/aretw0/quadrat/pkg/domain"
)

// TimelineBuilder provides a fluent API for configuring a container node.
type TimelineBuilder struct {
	desc *domain.Description
}

// Trial appends a leaf trial to this timeline.
func (t *TimelineBuilder) Trial(trialType string) *TrialBuilder {
	child := &domain.Description{Type: trialType}
	t.desc.Timeline = append(t.desc.Timeline, child)
	return &TrialBuilder{desc: child}
}

// Timeline appends a nested timeline.
func (t *TimelineBuilder) Timeline(name string) *TimelineBuilder {
	child := &domain.Description{Name: name}
	t.desc.Timeline = append(t.desc.Timeline, child)
	return &TimelineBuilder{desc: child}
}

// Variables declares the ordered variable sets bound per iteration.
func (t *TimelineBuilder) Variables(sets ...Vars) *TimelineBuilder {
	t.desc.TimelineVariables = append(t.desc.TimelineVariables, sets...)
	return t
}

// Sample selects the variable-set assignment strategy.
func (t *TimelineBuilder) Sample(method string) *TimelineBuilder {
	t.desc.Sample = &domain.SampleSpec{Method: method}
	return t
}

// SampleFn installs a custom ordering generator.
func (t *TimelineBuilder) SampleFn(fn func(setCount, repetitions int) []int) *TimelineBuilder {
	t.desc.Sample = &domain.SampleSpec{Method: domain.SampleCustom, Fn: fn}
	return t
}

// Repeat sets the repetition count for the iteration plan.
func (t *TimelineBuilder) Repeat(n int) *TimelineBuilder {
	t.desc.Repetitions = n
	return t
}

// Shuffle randomizes child order independently on each pass.
func (t *TimelineBuilder) Shuffle() *TimelineBuilder {
	t.desc.RandomizeOrder = true
	return t
}

// If gates entry into this timeline. The predicate runs once per entry.
func (t *TimelineBuilder) If(gate domain.Gate) *TimelineBuilder {
	t.desc.Conditional = gate
	return t
}

// LoopWhile repeats the entry while the predicate holds. It sees the records
// accumulated during this entry.
func (t *TimelineBuilder) LoopWhile(gate domain.LoopGate) *TimelineBuilder {
	t.desc.Loop = gate
	return t
}

// OnStart fires once per timeline entry, before any child executes.
func (t *TimelineBuilder) OnStart(cb domain.TimelineCallback) *TimelineBuilder {
	t.desc.OnTimelineStart = cb
	return t
}

// OnFinish fires once per timeline entry, after the last child (and any
// loops) complete.
func (t *TimelineBuilder) OnFinish(cb domain.TimelineCallback) *TimelineBuilder {
	t.desc.OnTimelineFinish = cb
	return t
}

// Description returns the underlying node. Exposed for advanced usage.
func (t *TimelineBuilder) Description() *domain.Description {
	return t.desc
}

// TrialBuilder provides a fluent API for configuring a leaf trial.
type TrialBuilder struct {
	desc *domain.Description
}

// Name labels the trial for logs and events.
func (n *TrialBuilder) Name(name string) *TrialBuilder {
	n.desc.Name = name
	return n
}

// Param declares a literal parameter.
func (n *TrialBuilder) Param(key string, value any) *TrialBuilder {
	n.param(key, domain.Value(value))
	return n
}

// Var declares a parameter bound to a timeline variable at trial time.
func (n *TrialBuilder) Var(key, variable string) *TrialBuilder {
	n.param(key, domain.Var(variable))
	return n
}

// ParamFunc declares a deferred parameter, re-evaluated on every execution.
func (n *TrialBuilder) ParamFunc(key string, fn func() any) *TrialBuilder {
	n.param(key, domain.Func(fn))
	return n
}

// OnStart runs after parameter resolution, before the presenter sees the
// trial. It may mutate the resolved parameters.
func (n *TrialBuilder) OnStart(cb domain.TrialStartCallback) *TrialBuilder {
	n.desc.OnStart = cb
	return n
}

// OnFinish is the trial's stage in the data pipeline.
func (n *TrialBuilder) OnFinish(cb domain.TrialFinishCallback) *TrialBuilder {
	n.desc.OnFinish = cb
	return n
}

// Description returns the underlying node. Exposed for advanced usage.
func (n *TrialBuilder) Description() *domain.Description {
	return n.desc
}

func (n *TrialBuilder) param(key string, p domain.Parameter) {
	if n.desc.Parameters == nil {
		n.desc.Parameters = make(domain.Parameters)
	}
	n.desc.Parameters[key] = p
}
