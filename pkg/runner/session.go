package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
)

// Session binds a presenter, optional persistence, and signal handling into
// a single participant run. Each finalized record is appended to the
// configured store under the session's run ID as the experiment progresses.
type Session struct {
	ID      string
	Handler ports.TrialRunner
	Store   ports.ResultStore
	Logger  *slog.Logger
	Signals *SignalManager

	expOpts  []quadrat.Option
	onData   []domain.DataCallback
	observer func(*quadrat.Experiment)
}

// NewSession creates a session around the given presenter.
func NewSession(handler ports.TrialRunner, opts ...Option) (*Session, error) {
	if handler == nil {
		return nil, fmt.Errorf("a trial presenter is required")
	}
	s := &Session{
		Handler: handler,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s, nil
}

// Run executes the timeline for this session, blocking until the run ends.
// A SIGINT or SIGTERM from the signal manager aborts the run; the abort
// surfaces as domain.ErrAborted.
func (s *Session) Run(ctx context.Context, desc *domain.Description) error {
	opts := []quadrat.Option{
		quadrat.WithLogger(s.Logger.With("run_id", s.ID)),
	}
	opts = append(opts, s.expOpts...)
	// The session owns the data callback slot so persistence and extra
	// observers compose instead of overwriting each other.
	if s.Store != nil || len(s.onData) > 0 {
		opts = append(opts, quadrat.WithOnDataUpdate(s.dispatchRecord))
	}

	exp, err := quadrat.New(desc, s.Handler, opts...)
	if err != nil {
		return err
	}
	if s.observer != nil {
		s.observer(exp)
	}

	if s.Signals != nil {
		watchCtx, stopWatch := context.WithCancel(ctx)
		defer stopWatch()
		go func() {
			select {
			case <-s.Signals.Context().Done():
				s.Logger.Info("interrupt received, aborting run", "run_id", s.ID)
				exp.Abort()
			case <-watchCtx.Done():
			}
		}()
	}

	return exp.Run(ctx)
}

func (s *Session) dispatchRecord(ctx context.Context, rec domain.Result) {
	if s.Store != nil {
		s.persist(ctx, rec)
	}
	for _, cb := range s.onData {
		cb(ctx, rec)
	}
}

// persist writes a finalized record to the store. Storage failures never
// interrupt the run; they are logged and the experiment continues.
func (s *Session) persist(ctx context.Context, rec domain.Result) {
	if err := s.Store.Append(ctx, s.ID, rec); err != nil {
		s.Logger.Warn("failed to persist record",
			"run_id", s.ID,
			"trial_index", rec.TrialIndex(),
			"err", err,
		)
	}
}
