package memory

import (
	"context"
	"sync"

	"github.com/aretw0/quadrat/pkg/domain"
)

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	runs map[string][]domain.Result
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		runs: make(map[string][]domain.Result),
	}
}

// Append adds a finalized record to the run, creating the run on first use.
func (s *Store) Append(ctx context.Context, runID string, rec domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Store a copy so later caller mutations can't reach the stored record.
	s.runs[runID] = append(s.runs[runID], rec.Clone())
	return nil
}

// List returns the run's records in append order.
func (s *Store) List(ctx context.Context, runID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	out := make([]domain.Result, len(recs))
	for i, rec := range recs {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Delete removes the run and its records.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// Runs returns the IDs of all stored runs.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids, nil
}
