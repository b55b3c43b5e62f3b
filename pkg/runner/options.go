package runner

import (
	"log/slog"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
)

// Option defines a functional option for configuring the Session.
type Option func(*Session)

// WithStore configures the ResultStore for record persistence.
func WithStore(store ports.ResultStore) Option {
	return func(s *Session) {
		s.Store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.Logger = logger
	}
}

// WithRunID sets the run ID used as the persistence key.
// A timestamp-based ID is generated when unset.
func WithRunID(id string) Option {
	return func(s *Session) {
		s.ID = id
	}
}

// WithSignals attaches a signal manager; its signals abort the run.
func WithSignals(sm *SignalManager) Option {
	return func(s *Session) {
		s.Signals = sm
	}
}

// WithOnDataUpdate registers an additional observer of each finalized
// record, invoked after the record is persisted. Observers stack: every
// registered callback sees every record.
func WithOnDataUpdate(cb domain.DataCallback) Option {
	return func(s *Session) {
		s.onData = append(s.onData, cb)
	}
}

// WithExperimentObserver registers a callback invoked with the experiment
// right before the run starts. Control adapters (HTTP, MCP) use it to get a
// handle on the running experiment.
func WithExperimentObserver(fn func(*quadrat.Experiment)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// WithExperimentOptions forwards extra options to the underlying
// experiment (seeding, lifecycle hooks, data callbacks).
func WithExperimentOptions(opts ...quadrat.Option) Option {
	return func(s *Session) {
		s.expOpts = append(s.expOpts, opts...)
	}
}
