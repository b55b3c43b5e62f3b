package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTrialStart     EventType = "trial_start"
	EventTrialFinish    EventType = "trial_finish"
	EventTimelineEnter  EventType = "timeline_enter"
	EventTimelineFinish EventType = "timeline_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// TrialEvent describes one trial starting or finishing.
type TrialEvent struct {
	EventBase
	TrialType  string `json:"trial_type"`
	TrialIndex int    `json:"trial_index"`
	// Record is set on finish events only: a frozen copy of the finalized
	// record.
	Record Result `json:"record,omitempty"`
}

// TimelineEvent describes entry into or exit from a container node.
type TimelineEvent struct {
	EventBase
	Name  string `json:"name,omitempty"`
	Depth int    `json:"depth"`
}

// LifecycleHooks defines callbacks for engine observability. These are
// distinct from the user callbacks declared on a Description: hooks observe,
// they do not participate in the data pipeline and cannot mutate records.
type LifecycleHooks struct {
	OnTrialStart     func(context.Context, *TrialEvent)
	OnTrialFinish    func(context.Context, *TrialEvent)
	OnTimelineEnter  func(context.Context, *TimelineEvent)
	OnTimelineFinish func(context.Context, *TimelineEvent)
}

// MergeHooks combines hook sets into one. Every non-nil callback fires, in
// the order the sets were given.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, set := range sets {
		merged.OnTrialStart = chainTrialHook(merged.OnTrialStart, set.OnTrialStart)
		merged.OnTrialFinish = chainTrialHook(merged.OnTrialFinish, set.OnTrialFinish)
		merged.OnTimelineEnter = chainTimelineHook(merged.OnTimelineEnter, set.OnTimelineEnter)
		merged.OnTimelineFinish = chainTimelineHook(merged.OnTimelineFinish, set.OnTimelineFinish)
	}
	return merged
}

func chainTrialHook(a, b func(context.Context, *TrialEvent)) func(context.Context, *TrialEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *TrialEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainTimelineHook(a, b func(context.Context, *TimelineEvent)) func(context.Context, *TimelineEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *TimelineEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
