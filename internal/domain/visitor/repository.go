package visitor

import (
	"context"
	"time"
)

type VisitorRepository interface {
	Create(ctx context.Context, v Visitor) (Visitor, error)

	// ListSince returns visitors that entered at or after since, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]Visitor, error)

	// Delete removes a visitor; it reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
}
