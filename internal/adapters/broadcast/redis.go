package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/pkg/logger"
)

// Broadcaster accepts already framed messages. *Hub implements it.
type Broadcaster interface {
	Broadcast(msg []byte) error
}

// RedisPublisher publishes framed results on a Redis channel so every
// instance's RedisRelay can forward them to its own viewers.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	terms   model.Terminology
}

// NewRedisPublisher creates a publisher on channel.
func NewRedisPublisher(client redis.UniversalClient, channel string, t model.Terminology) (*RedisPublisher, error) {
	if client == nil {
		return nil, ErrNoRedis
	}
	if channel == "" {
		return nil, ErrNoChannel
	}
	return &RedisPublisher{client: client, channel: channel, terms: t}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, ev model.ResultEvent) error {
	msg, err := Encode(p.terms, ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}

// RedisRelay subscribes to a Redis channel and hands each message to a
// local Broadcaster.
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	target  Broadcaster
	log     logger.Logger
}

// NewRedisRelay creates a relay from channel to target.
func NewRedisRelay(client redis.UniversalClient, channel string, target Broadcaster, log logger.Logger) (*RedisRelay, error) {
	if client == nil {
		return nil, ErrNoRedis
	}
	if channel == "" {
		return nil, ErrNoChannel
	}
	if target == nil {
		return nil, ErrNoBroadcast
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisRelay{client: client, channel: channel, target: target, log: log.Named("relay")}, nil
}

// Run relays until ctx is cancelled. The subscription is confirmed before
// Run starts forwarding, so an unreachable server fails fast.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.log.Info(ctx, "relay subscribed", logger.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := r.target.Broadcast([]byte(msg.Payload)); err != nil {
				r.log.Warn(ctx, "relay broadcast failed", logger.Error(err))
			}
		}
	}
}
