package runtime

import (
	"context"

	"github.com/aretw0/quadrat/pkg/domain"
)

// runTimeline drives one entry into a container node through its state
// machine: Gated -> Iterating -> LoopCheck -> {Iterating | Finished}.
//
// on_timeline_start and on_timeline_finish fire exactly once per entry,
// never per child, per repetition, or per loop repeat.
func (e *Engine) runTimeline(ctx context.Context, n *Node) error {
	desc := n.desc

	// Gated: the conditional sees the enclosing scope only; this node's
	// variables are not yet bound. A false gate produces no children, no
	// data, and no lifecycle firings.
	if desc.Conditional != nil {
		enter, err := desc.Conditional(ctx)
		if err != nil {
			return &domain.CallbackError{Hook: "conditional_function", Err: err}
		}
		if !enter {
			e.logger.Debug("timeline gated off", "timeline", n.Name())
			return nil
		}
	}

	if err := e.fireTimelineStart(ctx, n); err != nil {
		return err
	}

	entryStart := e.data.Len()

	for {
		// Iterating: iteration state is rebuilt on each loop repeat, so
		// sampling and order randomization are re-drawn.
		plan, err := planEntry(n, e.rng)
		if err != nil {
			return err
		}
		for _, it := range plan {
			if err := e.runIteration(ctx, n, it); err != nil {
				return err
			}
		}

		// LoopCheck: evaluated with the data accumulated during this entry.
		if desc.Loop == nil {
			break
		}
		entryData := e.data.Slice(entryStart, e.data.Len())
		again, err := desc.Loop(ctx, entryData)
		if err != nil {
			return &domain.CallbackError{Hook: "loop_function", Err: err}
		}
		if !again {
			break
		}
		e.logger.Debug("timeline looping", "timeline", n.Name())
	}

	return e.fireTimelineFinish(ctx, n)
}

// runIteration binds the iteration's variable set, drives each child in the
// planned order, and unbinds the set on exit.
func (e *Engine) runIteration(ctx context.Context, n *Node, it iteration) error {
	if it.set >= 0 {
		e.pushScope(n.desc.TimelineVariables[it.set])
		defer e.popScope()
	}
	for _, ci := range it.order {
		if err := e.runNode(ctx, n.children[ci]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) pushScope(vars domain.VariableSet) {
	e.mu.Lock()
	e.scope.Push(vars)
	e.mu.Unlock()
}

func (e *Engine) popScope() {
	e.mu.Lock()
	e.scope.Pop()
	e.mu.Unlock()
}

func (e *Engine) fireTimelineStart(ctx context.Context, n *Node) error {
	cb := n.desc.OnTimelineStart
	if cb == nil {
		cb = e.cfg.TimelineStart
	}
	if cb != nil {
		if err := cb(ctx); err != nil {
			return &domain.CallbackError{Hook: "on_timeline_start", Err: err}
		}
	}
	if e.cfg.Hooks.OnTimelineEnter != nil {
		e.cfg.Hooks.OnTimelineEnter(ctx, e.timelineEvent(domain.EventTimelineEnter, n))
	}
	return nil
}

func (e *Engine) fireTimelineFinish(ctx context.Context, n *Node) error {
	cb := n.desc.OnTimelineFinish
	if cb == nil {
		cb = e.cfg.TimelineFinish
	}
	if cb != nil {
		if err := cb(ctx); err != nil {
			return &domain.CallbackError{Hook: "on_timeline_finish", Err: err}
		}
	}
	if e.cfg.Hooks.OnTimelineFinish != nil {
		e.cfg.Hooks.OnTimelineFinish(ctx, e.timelineEvent(domain.EventTimelineFinish, n))
	}
	return nil
}

func (e *Engine) timelineEvent(typ domain.EventType, n *Node) *domain.TimelineEvent {
	return &domain.TimelineEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: typ},
		Name:      n.Name(),
		Depth:     n.depth,
	}
}
