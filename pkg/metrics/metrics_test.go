package metrics_test

import (
	"context"
	"testing"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/metrics"
	"github.com/aretw0/quadrat/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsTrialsAndTimelines(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	runner := ports.TrialRunnerFunc(func(_ context.Context, _ map[string]any, finish ports.FinishFunc) error {
		finish(map[string]any{"rt": int64(150)})
		return nil
	})

	exp, err := quadrat.New(&domain.Description{
		Timeline: []*domain.Description{
			{Type: "fixation"},
			{Type: "probe"},
		},
		Repetitions: 2,
	}, runner, quadrat.WithLifecycleHooks(collector.Hooks()))
	require.NoError(t, err)
	require.NoError(t, exp.Run(context.Background()))

	assert.Equal(t, 4.0, familySum(t, reg, "quadrat_trials_started_total"))
	assert.Equal(t, 4.0, familySum(t, reg, "quadrat_trials_finished_total"))
	assert.Equal(t, 1.0, familySum(t, reg, "quadrat_timelines_entered_total"))

	// Each finished trial carried an rt, so the histogram saw 4 samples.
	assert.Equal(t, uint64(4), histogramCount(t, reg, "quadrat_response_latency_seconds"))
}

// familySum adds a counter family across all label sets.
func familySum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func histogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var count uint64
		for _, m := range f.GetMetric() {
			count += m.GetHistogram().GetSampleCount()
		}
		return count
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
