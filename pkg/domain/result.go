package domain

import "sync"

// Engine-added fields present on every finalized Result.
const (
	// FieldTrialType names the trial kind that produced the record.
	FieldTrialType = "trial_type"
	// FieldTrialIndex is the zero-based position of the trial in the run,
	// strictly increasing and gap-free.
	FieldTrialIndex = "trial_index"
	// FieldTimeElapsed is wall-clock milliseconds since the run started.
	FieldTimeElapsed = "time_elapsed"
)

// Result is one trial's observation record: a mapping of field name to
// value. It is mutable while traveling the data pipeline and frozen once
// appended to the Collection.
type Result map[string]any

// Clone returns a shallow copy of the record. Values are shared; the map
// itself is independent.
func (r Result) Clone() Result {
	out := make(Result, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TrialIndex returns the engine-assigned trial index, or -1 if absent.
func (r Result) TrialIndex() int {
	// Records reloaded from a JSON-backed store carry numbers as float64.
	switch v := r[FieldTrialIndex].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return -1
}

// Collection is the append-only ordered sequence of finalized Results for a
// whole run. It is the sole owner of result history: entries are never
// removed, only appended, for the run's lifetime.
//
// The engine is the only writer; the mutex exists for external readers
// (query surfaces) observing a run in progress.
type Collection struct {
	mu      sync.RWMutex
	records []Result
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Append finalizes rec and adds it to the history. The stored record is a
// copy, so later mutation of rec by the caller has no effect.
func (c *Collection) Append(rec Result) {
	frozen := rec.Clone()
	c.mu.Lock()
	c.records = append(c.records, frozen)
	c.mu.Unlock()
}

// Len returns the number of finalized records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Values returns copies of all finalized records in append order.
func (c *Collection) Values() []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Result, len(c.records))
	for i, rec := range c.records {
		out[i] = rec.Clone()
	}
	return out
}

// Slice returns copies of the records in [from, to). Bounds are clamped.
func (c *Collection) Slice(from, to int) []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if to > len(c.records) {
		to = len(c.records)
	}
	if from >= to {
		return nil
	}
	out := make([]Result, 0, to-from)
	for _, rec := range c.records[from:to] {
		out = append(out, rec.Clone())
	}
	return out
}

// Last returns a copy of the most recent record, or nil if empty.
func (c *Collection) Last() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.records) == 0 {
		return nil
	}
	return c.records[len(c.records)-1].Clone()
}
