package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

// Consumer reads NotificationEvents and passes them to a notifier.
type Consumer struct {
	url      string
	notifier ports.Notifier
	log      *zap.Logger
}

func NewConsumer(url string, notifier ports.Notifier, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, notifier: notifier, log: log}
}

// Run consumes until ctx is cancelled, redialling the broker with
// exponential backoff whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("notification consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("notification consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.log.Warn("notification consumer: set qos failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.Warn("notification consumer: message rejected", zap.Error(err))
				_ = d.Nack(false, false) // no requeue, avoids a poison-message loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle delivers one message.  A notice the notifier declines (for
// example no SMTP credentials) is still acknowledged; only malformed
// messages and transport errors are rejected.
func (c *Consumer) handle(ctx context.Context, body []byte) error {
	ev, err := decodeEvent(body)
	if err != nil {
		return err
	}
	delivered, err := c.notifier.Notify(ctx, ev.Notification)
	if err != nil {
		return fmt.Errorf("deliver %s to %s: %w", ev.Notification.Kind, ev.Notification.Recipient, err)
	}
	c.log.Info("notification processed",
		zap.String("kind", string(ev.Notification.Kind)),
		zap.String("to", ev.Notification.Recipient),
		zap.Bool("delivered", delivered),
		zap.Duration("queued_for", time.Since(ev.PublishedAt)))
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
