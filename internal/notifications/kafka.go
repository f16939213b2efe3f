package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticketly/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaConfig contains configuration for the Kafka promotion topic
type KafkaConfig struct {
	Brokers          []string
	Topic            string
	GroupID          string
	RetryMax         int
	Timeout          time.Duration
	SessionTimeout   time.Duration
	HeartbeatTimeout time.Duration
}

func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "waitlist-promotions",
		GroupID:          "ticketly-gateway",
		RetryMax:         3,
		Timeout:          10 * time.Second,
		SessionTimeout:   30 * time.Second,
		HeartbeatTimeout: 3 * time.Second,
	}
}

// KafkaPublisher publishes promotion messages keyed by user
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

func NewKafkaPublisher(cfg *KafkaConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	// Configure producer
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.RetryMax
	saramaConfig.Producer.Timeout = cfg.Timeout
	// hash partitioning keeps each user's notices in order
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    cfg.Topic,
		log:      logger.GetDefault().WithComponent("kafka"),
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg *PromotionMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal promotion: %w", err)
	}

	// Send message
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.PartitionKey()),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("message_id"), Value: []byte(msg.ID.String())},
			{Key: []byte("content_type"), Value: []byte("application/json")},
		},
		Timestamp: msg.PublishedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to send promotion to Kafka: %w", err)
	}

	p.log.DebugContext(ctx, "promotion published", "topic", p.topic, "partition", partition, "offset", offset, "user_id", msg.UserID.String())
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// KafkaConsumer reads the promotion topic and hands each message to the
// handler. Every instance needs its own group id to see every message.
type KafkaConsumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler Handler
	log     *logger.Logger
}

func NewKafkaConsumer(cfg *KafkaConfig, handler Handler) (*KafkaConsumer, error) {
	saramaConfig := sarama.NewConfig()
	// Configure consumer group
	saramaConfig.Consumer.Group.Session.Timeout = cfg.SessionTimeout
	saramaConfig.Consumer.Group.Heartbeat.Interval = cfg.HeartbeatTimeout
	saramaConfig.Consumer.Return.Errors = true
	// sessions that were not connected when a promotion happened cannot receive it
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &KafkaConsumer{
		group:   group,
		topics:  []string{cfg.Topic},
		handler: handler,
		log:     logger.GetDefault().WithComponent("kafka"),
	}, nil
}

// Run consumes with numWorkers group members until ctx is done
func (c *KafkaConsumer) Run(ctx context.Context, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	c.log.Info("starting promotion consumers", "workers", numWorkers, "topics", c.topics)

	go func() {
		// Drain the group's error channel
		for err := range c.group.Errors() {
			c.log.Warn("consumer group error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	// Start worker goroutines
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.runWorker(ctx, workerID)
		}(i)
	}
	wg.Wait()

	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

func (c *KafkaConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &groupHandler{handler: c.handler, workerID: workerID, log: c.log}
	for {
		// Consume returns on every rebalance; loop until shutdown
		if err := c.group.Consume(ctx, c.topics, handler); err != nil {
			c.log.Warn("error consuming promotions", "worker", workerID, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

type groupHandler struct {
	handler  Handler
	workerID int
	log      *logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Debug("consumer group session started", "worker", h.workerID)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Debug("consumer group session ended", "worker", h.workerID)
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := deliver(session.Context(), h.handler, message.Value); err != nil {
				h.log.Warn("dropping promotion message", "worker", h.workerID, "partition", message.Partition, "offset", message.Offset, "error", err)
			}
			// notices are best effort, so bad messages are committed too
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// deliver decodes a broker payload and passes it to the handler
func deliver(ctx context.Context, handler Handler, body []byte) error {
	msg, err := ParsePromotionMessage(body)
	if err != nil {
		return err
	}
	return handler(ctx, msg)
}
