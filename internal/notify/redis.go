package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultLiveFeedChannel is the Redis Pub/Sub channel for live feed events.
const DefaultLiveFeedChannel = "wheelbet:live_feed"

// RedisPublisher broadcasts events over Redis Pub/Sub so every API replica
// can push them to its own websocket clients.
type RedisPublisher struct {
	r       redis.Cmdable
	channel string
}

func NewRedisPublisher(r redis.Cmdable, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultLiveFeedChannel
	}
	return &RedisPublisher{r: r, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.r.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// StartRedisSubscriber relays events from channel into sink until ctx is done.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, sink Notifier) {
	if channel == "" {
		channel = DefaultLiveFeedChannel
	}
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					zap.L().Warn("live feed subscriber: bad payload", zap.Error(err))
					continue
				}
				if err := sink.Publish(ctx, e); err != nil {
					zap.L().Warn("live feed subscriber: relay failed", zap.Error(err))
				}
			}
		}
	}()
}
