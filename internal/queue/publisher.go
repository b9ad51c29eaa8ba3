package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements the notifier contract by handing the notice to the
// broker.  delivered means the broker accepted the message.
type Publisher struct {
	open func() (channel, func(), error)
	log  *zap.Logger
	now  func() time.Time
}

// NewPublisher dials url for every publish.  Verifications are rare
// enough that a pooled connection is not worth its reconnect handling.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{open: dialer(url), log: log, now: time.Now}
}

func dialer(url string) func() (channel, func(), error) {
	return func() (channel, func(), error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial broker: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		return ch, func() { _ = conn.Close() }, nil
	}
}

func (p *Publisher) Notify(ctx context.Context, n model.Notification) (bool, error) {
	body, err := json.Marshal(NotificationEvent{Notification: n, PublishedAt: p.now().UTC()})
	if err != nil {
		return false, fmt.Errorf("marshal event: %w", err)
	}
	ch, closeConn, err := p.open()
	if err != nil {
		return false, err
	}
	defer closeConn()
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return false, fmt.Errorf("queue declare: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", NotificationQueue, false, false, pub); err != nil {
		return false, fmt.Errorf("publish: %w", err)
	}
	p.log.Debug("notification queued", zap.String("kind", string(n.Kind)), zap.String("to", n.Recipient))
	return true, nil
}
