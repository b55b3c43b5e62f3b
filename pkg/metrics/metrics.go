// Package metrics exposes Prometheus collectors for experiment runs,
// bound to the engine through lifecycle hooks.
package metrics

import (
	"context"

	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the run-level Prometheus instruments.
type Collector struct {
	trialsStarted    *prometheus.CounterVec
	trialsFinished   *prometheus.CounterVec
	responseLatency  *prometheus.HistogramVec
	timelinesEntered prometheus.Counter
}

// NewCollector creates the instruments and registers them on reg.
// Pass prometheus.DefaultRegisterer for the process-global registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		trialsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quadrat_trials_started_total",
				Help: "Total number of trials handed to the presenter",
			},
			[]string{"trial_type"},
		),
		trialsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quadrat_trials_finished_total",
				Help: "Total number of trials finalized into the data collection",
			},
			[]string{"trial_type"},
		),
		responseLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quadrat_response_latency_seconds",
				Help:    "Participant response latency per trial",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trial_type"},
		),
		timelinesEntered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quadrat_timelines_entered_total",
				Help: "Total number of timeline entries",
			},
		),
	}
	reg.MustRegister(c.trialsStarted, c.trialsFinished, c.responseLatency, c.timelinesEntered)
	return c
}

// Hooks returns lifecycle hooks that feed the instruments. Compose them
// with your own hooks if you also need logging or tracing.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTrialStart: func(_ context.Context, e *domain.TrialEvent) {
			c.trialsStarted.WithLabelValues(e.TrialType).Inc()
		},
		OnTrialFinish: func(_ context.Context, e *domain.TrialEvent) {
			c.trialsFinished.WithLabelValues(e.TrialType).Inc()
			if ms, ok := latencyMillis(e.Record); ok {
				c.responseLatency.WithLabelValues(e.TrialType).Observe(float64(ms) / 1000)
			}
		},
		OnTimelineEnter: func(_ context.Context, _ *domain.TimelineEvent) {
			c.timelinesEntered.Inc()
		},
	}
}

// latencyMillis reads the conventional rt field, tolerating the numeric
// types produced by presenters and JSON round trips.
func latencyMillis(rec domain.Result) (int64, bool) {
	switch v := rec["rt"].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
