package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/quadrat/pkg/ports"
	"github.com/aretw0/quadrat/pkg/registry"
	"github.com/aretw0/quadrat/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	ran        int
	forceEnded int
}

func (r *recordingRunner) RunTrial(_ context.Context, _ map[string]any, finish ports.FinishFunc) error {
	r.ran++
	finish(map[string]any{"ok": true})
	return nil
}

func (r *recordingRunner) ForceEnd() {
	r.forceEnded++
}

func TestRegistry_DispatchByTrialType(t *testing.T) {
	reg := registry.NewRegistry()
	text := &recordingRunner{}
	key := &recordingRunner{}
	reg.Register("text", text)
	reg.Register("keypress", key)

	done := false
	err := reg.RunTrial(context.Background(), map[string]any{"trial_type": "keypress"}, func(map[string]any) {
		done = true
	})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 0, text.ran)
	assert.Equal(t, 1, key.ran)
}

func TestRegistry_UnknownTypeFails(t *testing.T) {
	reg := registry.NewRegistry()
	err := reg.RunTrial(context.Background(), map[string]any{"trial_type": "ghost"}, func(map[string]any) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no presenter registered")
}

func TestRegistry_SchemaRejectsBadParams(t *testing.T) {
	reg := registry.NewRegistry()
	key := &recordingRunner{}
	reg.RegisterWithSchema("keypress", key, schema.Schema{
		"stimulus": schema.String(),
		"choices":  schema.Slice(schema.String()),
	})

	err := reg.RunTrial(context.Background(), map[string]any{
		"trial_type": "keypress",
		"stimulus":   "RED",
	}, func(map[string]any) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "choices": required`)
	assert.Equal(t, 0, key.ran, "the presenter must not see invalid parameters")

	err = reg.RunTrial(context.Background(), map[string]any{
		"trial_type": "keypress",
		"stimulus":   "RED",
		"choices":    []any{"r", "b"},
	}, func(map[string]any) {})
	require.NoError(t, err)
	assert.Equal(t, 1, key.ran)
}

func TestRegistry_ForceEndReachesInFlight(t *testing.T) {
	reg := registry.NewRegistry()
	text := &recordingRunner{}
	reg.Register("text", text)

	err := reg.RunTrial(context.Background(), map[string]any{"trial_type": "text"}, func(map[string]any) {})
	require.NoError(t, err)

	reg.ForceEnd()
	assert.Equal(t, 1, text.forceEnded)
}
