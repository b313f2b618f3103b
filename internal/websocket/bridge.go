package websocket

import (
	"context"
)

// Subscriber is the pub/sub side of the fanout, satisfied by the redis
// subscriber.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(topic string, payload []byte)) error
}

// Bridge pipes published topic payloads into the hub so every connected
// viewer of a topic sees every broadcast regardless of which api instance
// produced it.
type Bridge struct {
	subscriber Subscriber
	hub        *Hub
}

func NewBridge(subscriber Subscriber, hub *Hub) *Bridge {
	return &Bridge{subscriber: subscriber, hub: hub}
}

func (b *Bridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, func(topic string, payload []byte) {
		b.hub.Broadcast(topic, payload)
	})
}
