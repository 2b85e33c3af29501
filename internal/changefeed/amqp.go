package changefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fjacquet/kakeibo/internal/entitystore"
	"fjacquet/kakeibo/internal/logging"
	"fjacquet/kakeibo/internal/models"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Publisher announces committed changes.
type Publisher interface {
	Publish(ctx context.Context, c entitystore.Change) error
}

// Notifier publishes change messages on a direct exchange and consumes the
// ones addressed to this context. Every context binds its own queue to the
// shared routing key, so each one receives every message.
type Notifier struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	exchange   string
	routingKey string
	queue      string
	self       models.TransactionSource
	logger     logging.Logger

	mu sync.Mutex // serializes publishes on the channel
}

// NewNotifier dials url and declares the exchange and this context's queue.
func NewNotifier(url, exchange, queue string, self models.TransactionSource, logger logging.Logger) (*Notifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	n := &Notifier{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: queue,
		queue:      QueueName(queue, self),
		self:       self,
		logger:     logging.OrDefault(logger),
	}

	if err := n.setup(); err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return n, nil
}

// QueueName is the queue a context consumes from.
func QueueName(base string, self models.TransactionSource) string {
	return base + "." + string(self)
}

func (n *Notifier) setup() error {
	err := n.channel.ExchangeDeclare(
		n.exchange, // name
		"direct",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = n.channel.QueueDeclare(
		n.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := n.channel.QueueBind(n.queue, n.routingKey, n.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends the notification for c.
func (n *Notifier) Publish(ctx context.Context, c entitystore.Change) error {
	body, err := NewChangeMessage(c).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	err = n.channel.PublishWithContext(
		ctx,
		n.exchange,   // exchange
		n.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	n.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	n.logger.Debug("Published change notification",
		logging.Field{Key: logging.FieldTransactionID, Value: c.RecordID.String()},
		logging.Field{Key: logging.FieldVersion, Value: c.Version},
		logging.Field{Key: logging.FieldQueue, Value: n.routingKey})
	return nil
}

// Consume hands every message on this context's queue to handle until ctx
// is done. Messages this context published itself are acknowledged and
// dropped.
func (n *Notifier) Consume(ctx context.Context, handle func(*ChangeMessage) error) error {
	msgs, err := n.channel.Consume(
		n.queue, // queue
		"",      // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	n.logger.Info("Consuming change notifications", logging.Field{Key: logging.FieldQueue, Value: n.queue})

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			msg, err := ChangeMessageFromJSON(delivery.Body)
			if err != nil {
				n.logger.WithError(err).Warn("Failed to unmarshal change notification")
				_ = delivery.Nack(false, false)
				continue
			}
			if msg.Author == string(n.self) {
				_ = delivery.Ack(false)
				continue
			}
			if err := handle(msg); err != nil {
				n.logger.WithError(err).Warn("Failed to handle change notification",
					logging.Field{Key: logging.FieldTransactionID, Value: msg.RecordID})
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close releases the channel and the connection.
func (n *Notifier) Close() error {
	if n.channel != nil {
		_ = n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// CommitHook returns an entitystore OnCommit callback that publishes every
// change. Publish failures are logged; the write has already committed.
func CommitHook(p Publisher, logger logging.Logger) func(context.Context, entitystore.Change) {
	logger = logging.OrDefault(logger)
	return func(ctx context.Context, c entitystore.Change) {
		if err := p.Publish(context.WithoutCancel(ctx), c); err != nil {
			logger.WithError(err).Warn("Failed to publish change notification",
				logging.Field{Key: logging.FieldTransactionID, Value: c.RecordID.String()})
		}
	}
}

// WakeOnMessage returns a Consume handler that triggers p.
func WakeOnMessage(p *Poller) func(*ChangeMessage) error {
	return func(*ChangeMessage) error {
		p.Notify()
		return nil
	}
}
