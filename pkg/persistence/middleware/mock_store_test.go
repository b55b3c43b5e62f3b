package middleware_test

import (
	"context"

	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string][]domain.Result
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string][]domain.Result),
	}
}

func (s *MockStore) Append(ctx context.Context, runID string, rec domain.Result) error {
	s.data[runID] = append(s.data[runID], rec)
	return nil
}

func (s *MockStore) List(ctx context.Context, runID string) ([]domain.Result, error) {
	recs, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return recs, nil
}

func (s *MockStore) Delete(ctx context.Context, runID string) error {
	delete(s.data, runID)
	return nil
}

func (s *MockStore) Runs(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.ResultStore = (*MockStore)(nil)
