package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ticketly/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig names the broker and the fanout exchange promotions go to
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

func declareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,     // name
		"fanout", // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	)
}

// RabbitMQPublisher publishes to the fanout exchange so every instance's
// consumer queue gets a copy
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitMQPublisher(cfg RabbitMQConfig) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, msg *PromotionMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal promotion: %w", err)
	}

	pub := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   msg.ID.String(),
		Timestamp:   msg.PublishedAt,
		Body:        body,
	}

	// channels are not safe for concurrent publishers
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, "", false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

// RabbitMQConsumer binds a private queue to the exchange and feeds the
// handler, reconnecting with backoff until ctx is done
type RabbitMQConsumer struct {
	cfg     RabbitMQConfig
	handler Handler
	log     *logger.Logger
}

func NewRabbitMQConsumer(cfg RabbitMQConfig, handler Handler) *RabbitMQConsumer {
	return &RabbitMQConsumer{
		cfg:     cfg,
		handler: handler,
		log:     logger.GetDefault().WithComponent("rabbitmq"),
	}
}

// Run reconnects with exponential backoff until ctx is done
func (c *RabbitMQConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err == nil {
			backoff = time.Second
			err = c.consumeLoop(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("promotion consumer disconnected, retrying", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		// Cap the backoff at 30s
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *RabbitMQConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, c.cfg.Exchange); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	// server-named, exclusive and auto-deleted: one queue per instance
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	// Limit unacked deliveries per consumer
	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", "error", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	// Process messages
	for d := range msgs {
		if err := deliver(ctx, c.handler, d.Body); err != nil {
			c.log.Warn("dropping promotion message", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}
