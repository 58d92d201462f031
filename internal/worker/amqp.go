package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// AMQPBroker consumes jobs from a durable queue and publishes events to a
// topic exchange. Consuming and publishing use separate channels.
type AMQPBroker struct {
	conn      *amqp.Connection
	consumeCh *amqp.Channel

	publishMu sync.Mutex
	publishCh *amqp.Channel

	queue    string
	exchange string
	tag      string
	logger   *errors.Logger
}

// DialAMQP connects to the broker and declares the job queue and the event
// exchange.
func DialAMQP(cfg config.WorkerConfig, logger *errors.Logger) (*AMQPBroker, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	if cfg.AMQPURL == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "worker.amqpURL is not set", nil)
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, errors.NewQueueError(errors.ErrCodeQueueUnavailable, "error connecting to rabbitmq", err)
	}

	b := &AMQPBroker{
		conn:     conn,
		queue:    cfg.Queue,
		exchange: cfg.Exchange,
		tag:      "resumatch-" + uuid.NewString(),
		logger:   logger,
	}
	if err := b.setup(cfg.Prefetch); err != nil {
		_ = conn.Close()
		return nil, errors.NewQueueError(errors.ErrCodeQueueUnavailable, "error preparing rabbitmq channels", err)
	}
	return b, nil
}

func (b *AMQPBroker) setup(prefetch int) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	b.consumeCh = ch

	err = ch.ExchangeDeclare(
		b.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // auto-delete
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
	}

	_, err = ch.QueueDeclare(
		b.queue, // queue name
		true,    // durable (survives broker restarts)
		false,   // auto-delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", b.queue, err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	pub, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open publish channel: %w", err)
	}
	b.publishCh = pub
	return nil
}

// Consume registers a consumer with manual acknowledgement. The consumer is
// cancelled when ctx is done, which closes the returned channel.
func (b *AMQPBroker) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := b.consumeCh.Consume(
		b.queue, // queue name
		b.tag,   // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return nil, errors.NewQueueError(errors.ErrCodeQueueUnavailable, "error consuming rabbitmq messages", err)
	}

	go func() {
		<-ctx.Done()
		if err := b.consumeCh.Cancel(b.tag, false); err != nil {
			b.logger.Debug("Consumer cancel failed", "error", err)
		}
	}()

	b.logger.Info("Consuming jobs", "queue", b.queue, "consumer", b.tag)
	return msgs, nil
}

// Publish sends a persistent JSON message to the event exchange.
func (b *AMQPBroker) Publish(_ context.Context, routingKey string, body []byte) error {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	err := b.publishCh.Publish(
		b.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return errors.NewQueueError(errors.ErrCodeQueueUnavailable, "error publishing event", err).
			WithContext("routing_key", routingKey)
	}
	return nil
}

// Close closes both channels and the connection.
func (b *AMQPBroker) Close() error {
	if b.publishCh != nil {
		_ = b.publishCh.Close()
	}
	if b.consumeCh != nil {
		_ = b.consumeCh.Close()
	}
	return b.conn.Close()
}
