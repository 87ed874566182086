// Package nats forwards committed events to the rest of the platform over
// NATS JetStream. The publisher is a regular projection: it rides the
// projection manager's checkpointing, so delivery is at-least-once in global
// sequence order and survives restarts without losing or skipping events.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/omnicamp/eventcore/eventsrc"
)

// Publisher publishes every committed event to a JetStream subject derived
// from its stream ID. It implements projection.Projection.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
	name   string
}

// NewPublisher connects to NATS and ensures the target stream exists.
func NewPublisher(url, stream string) (*Publisher, error) {
	nc, err := nats.Connect(
		url,
		nats.Timeout(10*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		if err != nats.ErrStreamNotFound {
			nc.Close()
			return nil, fmt.Errorf("failed to get stream info for %s: %w", stream, err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{fmt.Sprintf("%s.*", stream)},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream %s: %w", stream, err)
		}
	}

	return &Publisher{
		conn:   nc,
		js:     js,
		stream: stream,
		name:   fmt.Sprintf("%s-publisher", stream),
	}, nil
}

// Name identifies the publisher's checkpoint.
func (p *Publisher) Name() string { return p.name }

// EventTypes returns nil: every committed event is forwarded.
func (p *Publisher) EventTypes() []string { return nil }

// Envelope is the wire shape of a forwarded event.
type Envelope struct {
	StreamID       string          `json:"stream_id"`
	Version        int             `json:"version"`
	GlobalSequence int64           `json:"global_sequence"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

// Apply publishes one stored event. Subjects are partitioned per stream so
// downstream consumers observe each aggregate's events in order.
func (p *Publisher) Apply(ctx context.Context, evt eventsrc.StoredEvent) error {
	data, err := json.Marshal(Envelope{
		StreamID:       evt.StreamID,
		Version:        evt.Version,
		GlobalSequence: evt.GlobalSequence,
		EventType:      evt.EventType,
		Payload:        evt.Payload,
		RecordedAt:     evt.RecordedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.stream, evt.StreamID)
	if _, err := p.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}

	slog.DebugContext(ctx, "Event published",
		"subject", subject, "eventType", evt.EventType, "globalSequence", evt.GlobalSequence)
	return nil
}

// Reset is a no-op: a rebuild simply republishes from sequence zero, and
// downstream consumers are expected to dedupe on global sequence.
func (p *Publisher) Reset(ctx context.Context) error { return nil }

// Close gracefully closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
