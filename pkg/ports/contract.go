package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResultStoreContract runs a suite of tests to verify that a ResultStore
// implementation adheres to the defined interface contract.
func RunResultStoreContract(t *testing.T, store ResultStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Append and List preserve order", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			rec := domain.Result{
				domain.FieldTrialIndex: i,
				domain.FieldTrialType:  "probe",
				"response":             "f",
			}
			require.NoError(t, store.Append(ctx, runID, rec))
		}

		records, err := store.List(ctx, runID)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, rec := range records {
			assert.Equal(t, i, rec.TrialIndex(), "records must come back in append order")
			assert.Equal(t, "probe", rec[domain.FieldTrialType])
		}
	})

	t.Run("List unknown run", func(t *testing.T) {
		_, err := store.List(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, runID, domain.Result{domain.FieldTrialIndex: 0}))

		require.NoError(t, store.Delete(ctx, runID))

		_, err := store.List(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "List after Delete should return ErrRunNotFound")
	})

	t.Run("Runs", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Append(ctx, id1, domain.Result{domain.FieldTrialIndex: 0})
		_ = store.Append(ctx, id2, domain.Result{domain.FieldTrialIndex: 0})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.Runs(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
