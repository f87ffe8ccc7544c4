package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeVisibilityRequests delivers queued requests to handler. A
// handler error Naks the message for redelivery, up to three deliveries.
// Undecodable messages are terminated.
func (s *Subscriber) SubscribeVisibilityRequests(ctx context.Context, handler func(ctx context.Context, req *domain.VisibilityRequest) error) error {
	sub, err := s.js.QueueSubscribe(SubjectRequestPrefix+">", "sightline-workers", func(msg *nats.Msg) {
		var req domain.VisibilityRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Warn("dropping malformed visibility request", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &req); err != nil {
			slog.Warn("visibility request failed", "id", req.ID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("visibility-worker"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// IsConnected reports the state of the underlying connection.
func (s *Subscriber) IsConnected() bool {
	return s.conn.IsConnected()
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
