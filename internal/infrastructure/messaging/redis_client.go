package messaging

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// goRedisClient adapts go-redis Pub/Sub to RedisClient.
type goRedisClient struct {
	rdb redis.UniversalClient
}

// NewGoRedisClient wraps a go-redis client.
func NewGoRedisClient(rdb redis.UniversalClient) RedisClient {
	return &goRedisClient{rdb: rdb}
}

func (c *goRedisClient) Publish(ctx context.Context, channel string, message string) error {
	return c.rdb.Publish(ctx, channel, message).Err()
}

// Subscribe waits for the subscription to be confirmed before returning.
func (c *goRedisClient) Subscribe(ctx context.Context, channel string) (<-chan RedisMessage, func() error, error) {
	ps := c.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close, nil
}
