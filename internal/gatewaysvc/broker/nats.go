package broker

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// NATSBus publishes changes on echo.game.<id>.<kind> so every gateway
// instance behind a load balancer sees every write.
type NATSBus struct {
	Conn *nats.Conn
}

func NewNATSBus(nc *nats.Conn) *NATSBus {
	return &NATSBus{Conn: nc}
}

func (b *NATSBus) Publish(ctx context.Context, c Change) error {
	payload, err := encode(c)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	subject := topic(".", c.GameID, c.Kind)
	if err := b.Conn.Publish(subject, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", subject, err)
		return err
	}

	return nil
}

func (b *NATSBus) Subscribe(gameID string, kind Kind, fn func(Change)) (func(), error) {
	sub, err := b.Conn.Subscribe(topic(".", gameID, kind), func(msg *nats.Msg) {
		c, err := decode(msg.Data)
		if err != nil {
			log.Errorf("Error nats message %s", err)
			return
		}
		fn(c)
	})
	if err != nil {
		return nil, err
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed && err != nats.ErrBadSubscription {
			log.Warnf("unsubscribe %s: %s", sub.Subject, err)
		}
	}, nil
}

// Close flushes pending publishes; the connection itself belongs to the caller.
func (b *NATSBus) Close() error {
	return b.Conn.Flush()
}
