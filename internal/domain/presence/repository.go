package presence

import (
	"context"
	"time"
)

// PresenceRepository is the materialized presence collection.
type PresenceRepository interface {
	// List returns every stored entry.
	List(ctx context.Context) ([]Entry, error)

	// ListOverrides returns every recorded manual checkout.
	ListOverrides(ctx context.Context) ([]Override, error)

	// Apply commits all upserts, deletes and override removals of b in one
	// transaction. Either everything is visible afterwards or nothing is.
	Apply(ctx context.Context, b Batch) error

	// Checkout deletes the entry for personID and records an override for day
	// carrying the deleted entry's movement count. It reports whether an
	// entry existed; deleting a missing entry is not an error.
	Checkout(ctx context.Context, personID string, day string, at time.Time) (bool, error)
}
