package runner_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/pkg/adapters/memory"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_RunPersistsRecords(t *testing.T) {
	store := memory.NewStore()
	handler := runner.NewTextHandler(strings.NewReader("yes\nno\n"), &strings.Builder{})

	sess, err := runner.NewSession(handler,
		runner.WithStore(store),
		runner.WithRunID("session-1"),
		runner.WithExperimentOptions(quadrat.WithSeed(3)),
	)
	require.NoError(t, err)

	desc := &domain.Description{
		Timeline: []*domain.Description{
			{Type: "text", Parameters: domain.Parameters{"stimulus": domain.Value("Ready?")}},
			{Type: "text", Parameters: domain.Parameters{"stimulus": domain.Value("Sure?")}},
		},
	}
	require.NoError(t, sess.Run(context.Background(), desc))

	recs, err := store.List(context.Background(), "session-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "yes", recs[0]["response"])
	assert.Equal(t, "no", recs[1]["response"])
	assert.Equal(t, 0, recs[0].TrialIndex())
	assert.Equal(t, 1, recs[1].TrialIndex())
}

func TestSession_RequiresHandler(t *testing.T) {
	_, err := runner.NewSession(nil)
	require.Error(t, err)
}

func TestSession_GeneratesRunID(t *testing.T) {
	handler := runner.NewTextHandler(strings.NewReader(""), &strings.Builder{})
	sess, err := runner.NewSession(handler)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
}
