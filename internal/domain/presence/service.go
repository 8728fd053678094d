package presence

import (
	"context"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
)

// Reconciler brings the presence collection in line with today's punches.
type Reconciler interface {
	Reconcile(ctx context.Context) (ReconcileResult, error)
}

// LiveView mirrors the presence and visitor collections and allows manual
// removal of entries.
type LiveView interface {
	// ListPresence returns the current presence collection.
	ListPresence(ctx context.Context) ([]Entry, error)

	// SubscribePresence streams full snapshots of the presence collection
	// until ctx ends or the returned cancel func is called.
	SubscribePresence(ctx context.Context) (<-chan Snapshot[Entry], func())

	// SubscribeVisitors streams full snapshots of visitors since local
	// midnight.
	SubscribeVisitors(ctx context.Context) (<-chan Snapshot[visitor.Visitor], func())

	// CheckoutPerson deletes a presence entry without blocking the caller.
	// The outcome arrives on the returned channel; failures are also
	// published to the error bus.
	CheckoutPerson(personID string) <-chan Outcome

	// CheckoutVisitor deletes a visitor entry without blocking the caller.
	CheckoutVisitor(visitorID string) <-chan Outcome
}
