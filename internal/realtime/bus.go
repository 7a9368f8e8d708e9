package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Channel layout for the realtime event bus. REST handlers publish here
// after successful mutations; every API instance's hub subscribes and
// fans out to its own sockets.
const (
	chatEventChannelPrefix = "mp:events:chat:" // mp:events:chat:{chat_id}
	globalEventChannel     = "mp:events:global"
	eventChannelPattern    = "mp:events:*"
)

// RedisBus carries events between REST mutations and the hub over Redis
// pub/sub. Publish failures are logged and dropped: realtime delivery is
// best-effort by contract.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) channelFor(ev Event) string {
	if ev.ChatID != "" {
		return chatEventChannelPrefix + ev.ChatID
	}
	return globalEventChannel
}

// Publish sends the event to its channel. Never fails the caller.
func (b *RedisBus) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[bus] marshal event %s: %v", ev.Name, err)
		return
	}
	if err := b.client.Publish(ctx, b.channelFor(ev), payload).Err(); err != nil {
		log.Printf("[bus] publish event %s: %v", ev.Name, err)
	}
}

// Run subscribes to every event channel and routes messages into the hub
// until the context is cancelled.
func (b *RedisBus) Run(ctx context.Context, hub *Hub) error {
	sub := b.client.PSubscribe(ctx, eventChannelPattern)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[bus] decode event on %s: %v", msg.Channel, err)
				continue
			}
			hub.Route(ev)
		}
	}
}
