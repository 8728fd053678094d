package presence

import (
	"time"
)

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	PassID         string        `json:"pass_id"`
	Day            string        `json:"day"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	PunchesFetched int           `json:"punches_fetched"`
	PunchesDropped int           `json:"punches_dropped"`
	PersonsSeen    int           `json:"persons_seen"`
	Present        int           `json:"present"`
	Suppressed     int           `json:"suppressed"`
	Upserted       int           `json:"upserted"`
	Deleted        int           `json:"deleted"`
	Committed      bool          `json:"committed"`
}

// Snapshot is one full-state update of a watched collection. When a reload
// fails after data has been delivered, Items holds the last known state,
// Stale is set and Err carries the failure.
type Snapshot[T any] struct {
	Items []T
	Stale bool
	Err   error
	At    time.Time
}

// TargetKind names the collection a manual checkout deletes from.
type TargetKind string

const (
	TargetPerson  TargetKind = "person"
	TargetVisitor TargetKind = "visitor"
)

// Outcome is the typed result of a fire-and-forget checkout.
type Outcome struct {
	Kind    TargetKind
	ID      string
	Deleted bool
	Err     error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type EntryResponse struct {
	PersonID      string `json:"person_id"`
	DisplayName   string `json:"display_name"`
	LastEntryTime string `json:"last_entry_time"`
	MovementCount int    `json:"movement_count"`
}

func ToResponse(e Entry) EntryResponse {
	return EntryResponse{
		PersonID:      e.PersonID,
		DisplayName:   e.DisplayName,
		LastEntryTime: e.LastEntryTime.Format(time.RFC3339),
		MovementCount: e.MovementCount,
	}
}

func ToResponses(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToResponse(e))
	}
	return out
}

type CheckoutResponse struct {
	Kind   TargetKind `json:"kind"`
	ID     string     `json:"id"`
	Status string     `json:"status"`
}
