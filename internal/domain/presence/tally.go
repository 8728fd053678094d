package presence

import (
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
)

// Tally is the per-person punch count for one day plus the latest punch seen
// for each person. It is derived on every pass and never persisted.
type Tally struct {
	// Order lists person ids in first-seen feed order.
	Order  []string
	Counts map[string]int
	Last   map[string]punch.Punch
}

// NewTally partitions punches by person. When two punches of a person share
// the maximum timestamp, whichever comes first in the feed is kept; feeds do
// not guarantee an order, so that choice is not deterministic.
func NewTally(punches []punch.Punch) Tally {
	t := Tally{
		Counts: make(map[string]int),
		Last:   make(map[string]punch.Punch),
	}
	for _, p := range punches {
		if _, seen := t.Counts[p.PersonID]; !seen {
			t.Order = append(t.Order, p.PersonID)
		}
		t.Counts[p.PersonID]++

		if last, ok := t.Last[p.PersonID]; !ok || p.Timestamp.After(last.Timestamp) {
			t.Last[p.PersonID] = p
		}
	}
	return t
}

// Present returns the ids whose count is odd, in first-seen order.
func (t Tally) Present() []string {
	return PresentSubset(t.Order, t.Counts)
}
