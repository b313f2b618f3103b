package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Topic fanout travels over redis pub/sub on "ws:<topic>" channels so that
// every api instance's websocket hub sees every broadcast.
const channelPrefix = "ws:"

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.client.Publish(ctx, channelPrefix+topic, payload).Err()
}
