package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/quadrat/pkg/adapters/memory"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *session.Manager {
	t.Helper()
	m := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, "run-1", domain.Result{
		domain.FieldTrialIndex: 0,
		domain.FieldTrialType:  "text",
		"response":             "space",
		"rt":                   int64(512),
	}))
	require.NoError(t, m.Append(ctx, "run-1", domain.Result{
		domain.FieldTrialIndex: 1,
		domain.FieldTrialType:  "key",
		"response":             "r",
		"correct":              true,
	}))
	return m
}

func TestManager_AppendListDelete(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)

	records, err := m.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[1].TrialIndex())

	require.NoError(t, m.Delete(ctx, "run-1"))
	_, err = m.List(ctx, "run-1")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestManager_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.Append(ctx, "busy", domain.Result{domain.FieldTrialIndex: i})
		}(i)
	}
	wg.Wait()

	records, err := m.List(ctx, "busy")
	require.NoError(t, err)
	assert.Len(t, records, 50)
}

func TestManager_ExportJSON(t *testing.T) {
	m := seeded(t)

	var buf bytes.Buffer
	require.NoError(t, m.ExportJSON(context.Background(), &buf, "run-1"))

	var records []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "space", records[0]["response"])
}

func TestManager_ExportCSV(t *testing.T) {
	m := seeded(t)

	var buf bytes.Buffer
	require.NoError(t, m.ExportCSV(context.Background(), &buf, "run-1"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	// Header is the sorted union of keys across both records.
	assert.Equal(t, "correct,response,rt,trial_index,trial_type", lines[0])
	assert.Contains(t, lines[1], "space")
	// The first record has no 'correct' value: empty leading cell.
	assert.True(t, strings.HasPrefix(lines[1], ","), "missing keys should be empty cells: %q", lines[1])
	assert.Contains(t, lines[2], "true")
}

func TestManager_ExportUnknownRun(t *testing.T) {
	m := session.NewManager(memory.NewStore())

	var buf bytes.Buffer
	err := m.ExportCSV(context.Background(), &buf, "nope")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}
