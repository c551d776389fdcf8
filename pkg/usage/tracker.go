package usage

import (
	"sort"
	"sync"
	"time"
)

type matchKey struct {
	outcome   string
	matchedID string
}

// Tracker counts interactions by outcome and by matched rule or fact.
type Tracker struct {
	mu       sync.RWMutex
	since    time.Time
	total    int64
	outcomes map[string]int64
	matches  map[matchKey]int64
	reloads  int64
}

func NewTracker() *Tracker {
	return &Tracker{
		since:    time.Now(),
		outcomes: make(map[string]int64),
		matches:  make(map[matchKey]int64),
	}
}

// RecordInteraction counts one answered message.
func (t *Tracker) RecordInteraction(outcome, matchedID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.outcomes[outcome]++
	if matchedID != "" {
		t.matches[matchKey{outcome, matchedID}]++
	}
}

// RecordReload counts one knowledge base swap.
func (t *Tracker) RecordReload() {
	t.mu.Lock()
	t.reloads++
	t.mu.Unlock()
}

// MatchCount is one row of the top matches table.
type MatchCount struct {
	Outcome   string
	MatchedID string
	Count     int64
}

// Snapshot is a consistent copy of the counters.
type Snapshot struct {
	Since      time.Time
	Total      int64
	ByOutcome  map[string]int64
	TopMatches []MatchCount
	Reloads    int64
}

// Snapshot copies the counters; TopMatches holds at most limit rows,
// highest count first, ties by id.
func (t *Tracker) Snapshot(limit int) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := Snapshot{
		Since:     t.since,
		Total:     t.total,
		ByOutcome: make(map[string]int64, len(t.outcomes)),
		Reloads:   t.reloads,
	}
	for k, v := range t.outcomes {
		out.ByOutcome[k] = v
	}
	for k, v := range t.matches {
		out.TopMatches = append(out.TopMatches, MatchCount{Outcome: k.outcome, MatchedID: k.matchedID, Count: v})
	}
	sort.Slice(out.TopMatches, func(i, j int) bool {
		a, b := out.TopMatches[i], out.TopMatches[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Outcome != b.Outcome {
			return a.Outcome < b.Outcome
		}
		return a.MatchedID < b.MatchedID
	})
	if limit > 0 && len(out.TopMatches) > limit {
		out.TopMatches = out.TopMatches[:limit]
	}
	return out
}
