// Package broker is the thin client around the upstream pub/sub + key-value
// system (Redis). It is deliberately dumb: the refcounted fan-out logic that
// decides when to actually call Subscribe/Unsubscribe lives one layer up, in
// pkg/pubsub. This package only knows how to talk to the wire.
package broker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Broker is the upstream pub/sub + KV side the gateway depends on. The
// adapter layer above it (pkg/pubsub) multiplexes many local listeners over
// a single subscriber connection per channel.
type Broker interface {
	// Subscribe opens a physical subscription to channel. The returned
	// channel yields raw message payloads until ctx is canceled or Close is
	// called; the returned cancel func tears down the subscription early.
	Subscribe(ctx context.Context, channel string) (msgs <-chan []byte, cancel func(), err error)
	Publish(ctx context.Context, channel string, payload []byte) error
	// SetEx writes a short TTL'd marker; used by the Subscription Heartbeat.
	SetEx(ctx context.Context, key string, value string, ttl time.Duration) error
	Close() error
}

// RedisBroker implements Broker over go-redis/v9.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker wraps an already-configured redis client.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

// Dial opens a new redis client from already-parsed connection options.
func Dial(opts *redis.Options) *RedisBroker {
	return &RedisBroker{client: redis.NewClient(opts)}
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := b.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-done:
					return
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		_ = sub.Close()
	}
	return out, cancel, nil
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBroker) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
