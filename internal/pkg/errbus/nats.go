package errbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSForwarder publishes failures as JSON on a NATS subject so that other
// services can alert on them.
type NATSForwarder struct {
	conn    *nats.Conn
	subject string
}

func NewNATSForwarder(conn *nats.Conn, subject string) *NATSForwarder {
	return &NATSForwarder{conn: conn, subject: subject}
}

func (n *NATSForwarder) Forward(_ context.Context, f Failure) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode failure: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", n.subject, err)
	}
	return nil
}
