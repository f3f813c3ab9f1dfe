package selector

import (
	"sort"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
)

// Shortlist retains a bounded number of candidates in arrival order.
//
// Once full, a new candidate evicts the first entry (in current order) whose
// combined score it meets or exceeds, and is appended at the end. This is
// not a top-K structure: the evicted entry is not necessarily the lowest.
type Shortlist struct {
	slots   int
	entries []model.Candidate
}

// NewShortlist returns an empty shortlist with the given capacity.
func NewShortlist(slots int) *Shortlist {
	return &Shortlist{slots: slots, entries: make([]model.Candidate, 0, slots)}
}

// Offer adds c if there is room or if it beats an existing entry. It
// reports whether c was retained.
func (s *Shortlist) Offer(c model.Candidate) bool {
	if len(s.entries) < s.slots {
		s.entries = append(s.entries, c)
		return true
	}
	for i, e := range s.entries {
		if c.Score.Combined >= e.Score.Combined {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.entries = append(s.entries, c)
			return true
		}
	}
	return false
}

// Replace clears the shortlist and keeps only c.
func (s *Shortlist) Replace(c model.Candidate) {
	s.entries = append(s.entries[:0], c)
}

// Len returns the number of retained candidates.
func (s *Shortlist) Len() int {
	return len(s.entries)
}

// Entries returns the retained candidates in their current order.
func (s *Shortlist) Entries() []model.Candidate {
	return s.entries
}

// Ranked returns a copy of the candidates sorted by combined score,
// highest first. Equal scores keep their current order.
func (s *Shortlist) Ranked() []model.Candidate {
	out := make([]model.Candidate, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score.Combined > out[b].Score.Combined
	})
	return out
}
