package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSNotifier publishes events to a NATS subject per event type:
// <prefix>.<event_type>.
type NATSNotifier struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNATSNotifier creates a NATS-backed notifier over an existing
// connection. Prefix defaults to "bookd.events".
func NewNATSNotifier(nc *nats.Conn, prefix string, logger *zap.Logger) (*NATSNotifier, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for nats notifier")
	}
	if prefix == "" {
		prefix = "bookd.events"
	}
	return &NATSNotifier{nc: nc, prefix: prefix, logger: logger}, nil
}

// Notify implements Notifier.
func (n *NATSNotifier) Notify(ctx context.Context, event Event) {
	event = stamp(event)

	payload, err := json.Marshal(event)
	if err != nil {
		logDelivery(n.logger, "nats", event, err)
		return
	}

	subject := fmt.Sprintf("%s.%s", n.prefix, event.Type)
	logDelivery(n.logger, "nats", event, n.nc.Publish(subject, payload))
}
