package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

// RedisPubSub is the Redis driver. Channels are used as-is and patterns go
// through PSUBSCRIBE.
type RedisPubSub struct {
	client *redis.Client

	mu   sync.Mutex
	subs []*redis.PubSub
}

// NewRedisPubSub connects and pings the server.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pubsub redis ping %s: %w", cfg.Address, err)
	}

	return &RedisPubSub{client: client}, nil
}

// Publish sends the JSON-encoded event on channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := event.marshal()
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe listens on one channel.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return r.listen(ctx, channel, r.client.Subscribe(ctx, channel))
}

// SubscribePattern listens on every channel matching a glob pattern.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return r.listen(ctx, pattern, r.client.PSubscribe(ctx, pattern))
}

// listen waits for the server's confirmation, so a publish issued after it
// returns is never missed, then forwards messages until ctx is done.
func (r *RedisPubSub) listen(ctx context.Context, name string, sub *redis.PubSub) (<-chan *Event, error) {
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("pubsub redis subscribe %s: %w", name, err)
	}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	out := make(chan *Event, subscriptionBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		l := log.L().With().Str("subscription", name).Logger()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := decodeEvent([]byte(msg.Payload))
				if err != nil {
					l.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable event")
					continue
				}
				select {
				case out <- event:
				default:
					l.Warn().Str("channel", msg.Channel).Str("type", event.Type).Msg("subscriber full, dropping event")
				}
			}
		}
	}()

	return out, nil
}

// Close ends every subscription and the client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return r.client.Close()
}
