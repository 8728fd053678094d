package presence

import (
	"time"
)

// Entry is the materialized record of a person currently considered on site.
// PersonID is the entry's identity.
type Entry struct {
	PersonID      string
	DisplayName   string
	LastEntryTime time.Time
	MovementCount int
	UpdatedAt     time.Time
}

// SameState reports whether two entries carry the same presence data.
// UpdatedAt is bookkeeping and ignored.
func (e Entry) SameState(o Entry) bool {
	return e.PersonID == o.PersonID &&
		e.DisplayName == o.DisplayName &&
		e.LastEntryTime.Equal(o.LastEntryTime) &&
		e.MovementCount == o.MovementCount
}

// Override is written when an operator checks a person out by hand. It keeps
// the person off the presence set for Day while their punch count stays at
// MovementCount.
type Override struct {
	PersonID      string
	Day           string // YYYY-MM-DD in the reference timezone
	MovementCount int
	CheckedOutAt  time.Time
}

// Suppresses reports whether the override still applies to a person who has
// count punches on day.
func (o Override) Suppresses(day string, count int) bool {
	return o.Day == day && o.MovementCount == count
}

// Batch is the complete set of mutations of one reconciliation pass. It is
// applied atomically.
type Batch struct {
	Upserts        []Entry
	Deletes        []string
	ClearOverrides []string
}

func (b Batch) IsEmpty() bool {
	return len(b.Upserts) == 0 && len(b.Deletes) == 0 && len(b.ClearOverrides) == 0
}
