package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"course-ledger-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultEventChannel is the pub/sub channel ledger events are published on.
const DefaultEventChannel = "ledger:events"

// EventPublisher is an app.EventSink that publishes events as JSON so other
// instances (dashboards, metrics exporters) can follow certificate changes.
type EventPublisher struct {
	client  *redis.Client
	channel string
}

func NewEventPublisher(client *redis.Client, channel string) *EventPublisher {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &EventPublisher{client: client, channel: channel}
}

func (p *EventPublisher) Emit(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal ledger event", "error", err, "type", event.Type)
		return
	}
	// best-effort; the decision is already durable
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		slog.Warn("publish ledger event", "error", err, "type", event.Type, "channel", p.channel)
	}
}

// Channel returns the channel events are published on.
func (p *EventPublisher) Channel() string {
	return p.channel
}
