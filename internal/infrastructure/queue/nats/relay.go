package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

// EventRelay mirrors live events between processes over a plain subject, so
// an admin stream on the API sees documents indexed by a worker.
type EventRelay struct {
	conn    *nats.Conn
	pub     publisher
	subject string
}

func NewEventRelay(conn *nats.Conn, subject string) *EventRelay {
	return &EventRelay{conn: conn, pub: conn, subject: subject}
}

// Forward publishes one locally produced event. Failures are logged only.
func (r *EventRelay) Forward(event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("event_relay_marshal_failed", "type", event.Type, "error", err)
		return
	}
	if err := r.pub.Publish(r.subject, payload); err != nil {
		slog.Warn("event_relay_publish_failed", "type", event.Type, "error", err)
	}
}

// Run hands events from other processes to deliver until ctx is done.
func (r *EventRelay) Run(ctx context.Context, deliver func(domain.Event)) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		decodeEvent(msg.Data, deliver)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe events: %w", err)
	}
	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain events: %w", err)
	}
	return r.conn.FlushTimeout(2 * time.Second)
}

func decodeEvent(data []byte, deliver func(domain.Event)) {
	var event domain.Event
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Warn("event_relay_malformed", "error", err)
		return
	}
	deliver(event)
}
