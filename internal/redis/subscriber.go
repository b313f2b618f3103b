package redis

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe delivers every published topic payload to handler until ctx is
// canceled. Blocks; run it on its own goroutine.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(topic string, payload []byte)) error {
	sub := s.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		handler(strings.TrimPrefix(msg.Channel, channelPrefix), []byte(msg.Payload))
	}
}
