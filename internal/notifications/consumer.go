package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"seatflow/internal/shared/config"
	"seatflow/pkg/logger"

	"github.com/IBM/sarama"
)

type ChangeFeedConsumer interface {
	StartConsumers(ctx context.Context, numWorkers int) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	SessionTimeoutMs     int
	HeartbeatMs          int
	RetryBackoffMs       int
	MaxProcessingTime    time.Duration
	AutoCommit           bool
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "seatflow-reconciler",
		Topics:               []string{"eventos-actualizacion"},
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		RetryBackoffMs:       100,
		MaxProcessingTime:    time.Minute,
		AutoCommit:           true,
		OffsetOldest:         false,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

// ConsumerConfigFromKafka builds the consumer settings from application config
func ConsumerConfigFromKafka(cfg config.KafkaConfig) *ConsumerConfig {
	consumerCfg := DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.Brokers
	consumerCfg.GroupID = cfg.ConsumerGroupID
	consumerCfg.Topics = cfg.ChangeFeedTopics
	return consumerCfg
}

type KafkaChangeFeedConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	processor     *Processor
	topics        []string
	log           *logger.Logger
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewKafkaChangeFeedConsumer(config *ConsumerConfig, processor *Processor) (ChangeFeedConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	if config.AutoCommit {
		saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
		saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &KafkaChangeFeedConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		processor:     processor,
		topics:        config.Topics,
		log:           logger.GetDefault(),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func (kc *KafkaChangeFeedConsumer) StartConsumers(ctx context.Context, numWorkers int) error {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	kc.log.Info("starting change-feed consumers",
		slog.Int("workers", numWorkers),
		slog.Any("topics", kc.topics))

	go kc.handleErrors()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			kc.runWorker(ctx, workerID)
		}(i)
	}

	return nil
}

func (kc *KafkaChangeFeedConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &ConsumerGroupHandler{
		consumer:  kc,
		workerID:  workerID,
		processor: kc.processor,
	}

	for {
		select {
		case <-ctx.Done():
			kc.log.Info("change-feed worker shutting down", slog.Int("worker", workerID))
			return
		case <-kc.ctx.Done():
			return
		default:
			if err := kc.consumerGroup.Consume(ctx, kc.topics, handler); err != nil {
				kc.log.Warn("change-feed consume failed",
					slog.Int("worker", workerID),
					slog.String("error", err.Error()))
				time.Sleep(time.Second)
			}
		}
	}
}

func (kc *KafkaChangeFeedConsumer) handleErrors() {
	for err := range kc.consumerGroup.Errors() {
		kc.log.Warn("consumer group error", slog.String("error", err.Error()))
	}
}

func (kc *KafkaChangeFeedConsumer) Stop() error {
	kc.cancel()

	if err := kc.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}

	kc.log.Info("change-feed consumer stopped")
	return nil
}

func (kc *KafkaChangeFeedConsumer) HealthCheck(ctx context.Context) error {
	select {
	case <-kc.ctx.Done():
		return fmt.Errorf("consumer context is cancelled")
	default:
		return nil
	}
}

type ConsumerGroupHandler struct {
	consumer  *KafkaChangeFeedConsumer
	workerID  int
	processor *Processor
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			// Delivery is at-least-once; handlers are idempotent and the
			// periodic catalog sync repairs anything dropped here
			h.processMessage(session.Context(), message)
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *ConsumerGroupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	n, err := h.processor.Process(ctx, message.Value, SourceKafka)
	if err == nil || IsPermanent(err) {
		return
	}

	if err := h.executeWithRetry(ctx, n); err != nil {
		h.processor.log.Error("change-feed message dropped after retries",
			slog.Int("worker", h.workerID),
			slog.String("topic", message.Topic),
			slog.Int64("offset", message.Offset),
			slog.String("error", err.Error()))
	}
}

func (h *ConsumerGroupHandler) executeWithRetry(ctx context.Context, n Notification) error {
	maxRetries := 3
	backoff := time.Second
	if h.consumer != nil && h.consumer.config != nil {
		maxRetries = h.consumer.config.MaxRetries
		backoff = h.consumer.config.RetryBackoffDuration
	}

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		delay := backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err = h.processor.Handle(ctx, n, SourceKafka); err == nil {
			return nil
		}
	}
	return err
}
