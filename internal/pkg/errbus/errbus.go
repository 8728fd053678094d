// Package errbus is the process-wide channel for failed background writes.
// A failure is fanned out to live dashboard streams and to any configured
// forwarders.
package errbus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/jackc/pgx/v5/pgconn"
)

// ChannelWriteError is the only channel name on the bus.
const ChannelWriteError = "write_error"

// SQLSTATE insufficient_privilege
const sqlStateInsufficientPrivilege = "42501"

type Kind string

const (
	KindPermission Kind = "permission"
	KindWrite      Kind = "write"
)

// Failure describes one background write that did not happen.
type Failure struct {
	Kind       Kind        `json:"kind"`
	Operation  string      `json:"operation"`
	Path       string      `json:"path"`
	Payload    interface{} `json:"payload,omitempty"`
	Message    string      `json:"message"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Forwarder ships failures somewhere outside the process.
type Forwarder interface {
	Forward(ctx context.Context, f Failure) error
}

// Bus publishes failures to the hub topic ChannelWriteError and to every
// forwarder.
type Bus struct {
	hub        *sse.Hub
	forwarders []Forwarder
	now        func() time.Time
}

func New(hub *sse.Hub, forwarders ...Forwarder) *Bus {
	return &Bus{hub: hub, forwarders: forwarders, now: time.Now}
}

// Classify reports whether err is an authorization failure from the store.
func Classify(err error) Kind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateInsufficientPrivilege {
		return KindPermission
	}
	return KindWrite
}

// Publish records a failed write of operation against path. It never blocks
// on slow listeners; forwarder errors are logged and dropped.
func (b *Bus) Publish(ctx context.Context, operation, path string, payload interface{}, err error) Failure {
	f := Failure{
		Kind:       Classify(err),
		Operation:  operation,
		Path:       path,
		Payload:    payload,
		Message:    err.Error(),
		OccurredAt: b.now(),
	}

	slog.Error("Background operation failed", "kind", f.Kind, "operation", operation, "path", path, "error", err)

	if b.hub != nil {
		b.hub.Publish(sse.Event{Topic: ChannelWriteError, Event: ChannelWriteError, Data: f})
	}
	for _, fw := range b.forwarders {
		if fwErr := fw.Forward(ctx, f); fwErr != nil {
			slog.Warn("Failed to forward write error", "operation", operation, "error", fwErr)
		}
	}

	return f
}

// Subscribe returns a stream of failures published after the call.
func (b *Bus) Subscribe() (<-chan sse.Event, func()) {
	return b.hub.Subscribe(ChannelWriteError)
}
