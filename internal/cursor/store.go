package cursor

import (
	"sort"
	"sync"
)

// filterState holds dedup state for a single filter.
type filterState struct {
	// lastProcessedMs is the newest event time (ms since epoch) already
	// delivered for this filter. Never decreases.
	lastProcessedMs int64

	// seen maps event ID -> first-seen wall-clock time (ms since epoch).
	// Insertion time, not event time.
	seen map[string]int64
}

// Store tracks dedup state for a fixed set of filters. All methods are
// safe for concurrent use; fetch and eviction ticks run on independent
// goroutines, so a single lock guards everything.
type Store struct {
	mu      sync.Mutex
	filters map[string]*filterState
}

// NewStore creates a store with one entry per filter key, each starting
// at the given watermark (ms since epoch). Pass 0 to accept all history
// the query endpoint returns.
func NewStore(filterKeys []string, startMs int64) *Store {
	s := &Store{
		filters: make(map[string]*filterState, len(filterKeys)),
	}
	for _, key := range filterKeys {
		s.filters[key] = &filterState{
			lastProcessedMs: startMs,
			seen:            make(map[string]int64),
		}
	}
	return s
}

// IsNew reports whether an event should be treated as not yet delivered
// for the given filter: its event time is strictly newer than the
// watermark and its ID has not been seen. Pure predicate, no side effect.
func (s *Store) IsNew(filterKey, eventID string, eventTimeMs int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.filters[filterKey]
	if !ok {
		return false
	}
	if eventTimeMs <= st.lastProcessedMs {
		return false
	}
	_, dup := st.seen[eventID]
	return !dup
}

// Record marks an event as delivered for the given filter: remembers its
// ID at the current wall-clock time and advances the watermark. Call only
// for events already classified new by IsNew, after a successful fetch.
func (s *Store) Record(filterKey, eventID string, eventTimeMs, nowMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.filters[filterKey]
	if !ok {
		return
	}
	st.seen[eventID] = nowMs
	if eventTimeMs > st.lastProcessedMs {
		st.lastProcessedMs = eventTimeMs
	}
}

// Watermark returns the current watermark for a filter (ms since epoch).
func (s *Store) Watermark(filterKey string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.filters[filterKey]
	if !ok {
		return 0
	}
	return st.lastProcessedMs
}

// TrackedIDs returns the total number of event IDs currently held for
// duplicate suppression, summed across all filters.
func (s *Store) TrackedIDs() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, st := range s.filters {
		total += len(st.seen)
	}
	return total
}

// Evict bounds memory for every filter: entries recorded strictly before
// nowMs-windowMs are dropped, then the oldest-recorded entries are dropped
// until at most maxStored remain. An entry recorded exactly at the cutoff
// is kept. Watermarks are never touched. Idempotent.
func (s *Store) Evict(nowMs, windowMs int64, maxStored int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := nowMs - windowMs
	for _, st := range s.filters {
		for id, seenMs := range st.seen {
			if seenMs < cutoff {
				delete(st.seen, id)
			}
		}

		excess := len(st.seen) - maxStored
		if excess <= 0 {
			continue
		}

		type entry struct {
			id     string
			seenMs int64
		}
		entries := make([]entry, 0, len(st.seen))
		for id, seenMs := range st.seen {
			entries = append(entries, entry{id, seenMs})
		}
		// Oldest first; ties broken by ID so eviction is deterministic.
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].seenMs != entries[j].seenMs {
				return entries[i].seenMs < entries[j].seenMs
			}
			return entries[i].id < entries[j].id
		})
		for _, e := range entries[:excess] {
			delete(st.seen, e.id)
		}
	}
}
