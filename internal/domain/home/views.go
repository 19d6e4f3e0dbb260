package home

import (
	"sort"

	"github.com/hearthos/shell/internal/shared/types"
)

// Read views over the registry. All are computed on demand from the
// primary index; ordering is ascending launch order.

// List returns snapshots of all tracked activities in launch order.
func (e *Engine) List() []types.Activity {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]types.Activity, 0, len(e.records))
	for _, rec := range e.orderedLocked() {
		out = append(out, *rec)
	}
	return out
}

// Len returns the number of tracked activities.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

// At returns the activity at position i in launch order.
func (e *Engine) At(i int) (types.Activity, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ordered := e.orderedLocked()
	if i < 0 || i >= len(ordered) {
		return types.Activity{}, false
	}
	return *ordered[i], true
}

// Index returns the position of an activity in launch order, or -1.
func (e *Engine) Index(activityID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for i, rec := range e.orderedLocked() {
		if rec.ID == activityID {
			return i
		}
	}
	return -1
}

// Get returns a snapshot of one activity by id.
func (e *Engine) Get(activityID string) (types.Activity, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, ok := e.records[activityID]
	if !ok {
		return types.Activity{}, false
	}
	return *rec, true
}

// Current returns the focused activity, if any.
func (e *Engine) Current() (types.Activity, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec := e.focusedLocked()
	if rec == nil {
		return types.Activity{}, false
	}
	return *rec, true
}

// Stats returns home model statistics.
func (e *Engine) Stats() types.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := types.Stats{TotalActivities: len(e.records)}
	for _, rec := range e.records {
		if rec.Kind == types.KindPlaceholder {
			stats.Placeholders++
		}
		if !rec.Launched {
			stats.PendingLaunches++
		}
	}
	if e.focusedID != "" {
		focused := e.focusedID
		stats.FocusedID = &focused
	}
	return stats
}

func (e *Engine) orderedLocked() []*types.Activity {
	ordered := make([]*types.Activity, 0, len(e.records))
	for _, rec := range e.records {
		ordered = append(ordered, rec)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LaunchSeq < ordered[j].LaunchSeq
	})
	return ordered
}
