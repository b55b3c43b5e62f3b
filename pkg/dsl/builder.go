package dsl

import (
	"github.com/aretw0/quadrat/pkg/domain"
)

// Vars is one timeline variable set.
type Vars = domain.VariableSet

// Builder constructs the root timeline of an experiment.
type Builder struct {
	root *TimelineBuilder
}

// New creates a new timeline builder.
func New(name string) *Builder {
	return &Builder{
		root: &TimelineBuilder{
			desc: &domain.Description{Name: name},
		},
	}
}

// Trial appends a leaf trial to the root timeline.
func (b *Builder) Trial(trialType string) *TrialBuilder {
	return b.root.Trial(trialType)
}

// Timeline appends a nested timeline to the root.
func (b *Builder) Timeline(name string) *TimelineBuilder {
	return b.root.Timeline(name)
}

// Build compiles and validates the description tree.
func (b *Builder) Build() (*domain.Description, error) {
	desc := b.root.desc
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}
