package ports

import (
	"context"

	"github.com/aretw0/quadrat/pkg/domain"
)

// ResultStore persists finalized trial records, keyed by run ID. The engine
// itself requires no persistence; stores observe the Data Collection so runs
// can be exported or inspected after the fact.
//
// Append order must be preserved: List returns records in the order they
// were appended.
type ResultStore interface {
	// Append adds one finalized record to the run's history.
	Append(ctx context.Context, runID string, rec domain.Result) error

	// List returns all records for a run in append order.
	// Returns domain.ErrRunNotFound if the run has no records.
	List(ctx context.Context, runID string) ([]domain.Result, error)

	// Delete removes a run's records.
	Delete(ctx context.Context, runID string) error

	// Runs returns the IDs of all stored runs.
	Runs(ctx context.Context) ([]string, error)
}
