// Package selection picks the high-volume outcomes that have not been published yet.
package selection

import (
	"sort"

	"garden-volume-watch/internal/domain"
)

// SeenSet holds the order ids already published. It is owned by the caller;
// Select never modifies it.
type SeenSet map[string]struct{}

// NewSeenSet builds a set from ids.
func NewSeenSet(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s SeenSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s SeenSet) Add(id string) {
	s[id] = struct{}{}
}

// Clone returns an independent copy.
func (s SeenSet) Clone() SeenSet {
	out := make(SeenSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Len returns the number of ids.
func (s SeenSet) Len() int {
	return len(s)
}

// Select drops outcomes already seen or below threshold (USD) and sorts the
// rest by descending volume. Equal volumes keep their input order.
func Select(outcomes []*domain.NormalizedOutcome, threshold float64, seen SeenSet) []*domain.NormalizedOutcome {
	selected := make([]*domain.NormalizedOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o == nil || seen.Has(o.OrderID) {
			continue
		}
		if o.VolumeUSD >= threshold {
			selected = append(selected, o)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].VolumeUSD > selected[j].VolumeUSD
	})
	return selected
}

// Top returns at most n outcomes from the head of sorted. n <= 0 means all.
func Top(sorted []*domain.NormalizedOutcome, n int) []*domain.NormalizedOutcome {
	if n <= 0 || n >= len(sorted) {
		return sorted
	}
	return sorted[:n]
}
