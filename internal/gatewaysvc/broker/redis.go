package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisBus uses Redis pub/sub; it pairs with the Redis store so a single
// Redis serves both data and change notices.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, c Change) error {
	payload, err := encode(c)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	channel := topic(":", c.GameID, c.Kind)
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Errorf("Error publishing to channel %s: %s", channel, err)
		return err
	}

	return nil
}

func (b *RedisBus) Subscribe(gameID string, kind Kind, fn func(Change)) (func(), error) {
	ctx := context.Background()
	channel := topic(":", gameID, kind)

	pubsub := b.client.Subscribe(ctx, channel)
	// wait for the subscription confirmation so no publish after this
	// call returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	ch := pubsub.Channel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			c, err := decode([]byte(msg.Payload))
			if err != nil {
				log.Errorf("Error redis message %s", err)
				continue
			}
			fn(c)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				log.Warnf("unsubscribe %s: %s", channel, err)
			}
			<-done
		})
	}, nil
}

// Close is a no-op; the client is shared with the store and closed there.
func (b *RedisBus) Close() error {
	return nil
}
