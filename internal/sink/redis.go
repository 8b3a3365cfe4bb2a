package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultChannelPrefix = "prices."

// Redis publishes frames on a pub/sub channel per symbol (prices.<SYMBOL>),
// for fan-out to live subscribers. Nothing is stored.
type Redis struct {
	client        *redis.Client
	channelPrefix string
}

func NewRedis(client *redis.Client, channelPrefix string) *Redis {
	if channelPrefix == "" {
		channelPrefix = defaultChannelPrefix
	}
	return &Redis{client: client, channelPrefix: channelPrefix}
}

func (r *Redis) Deliver(ctx context.Context, f Frame) error {
	channel := r.channelPrefix + f.Symbol
	if err := r.client.Publish(ctx, channel, f.Payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
