package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seatflow/internal/sales"
	"seatflow/internal/shared/config"
	"seatflow/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaProducerConfig contains configuration for the sale event producer
type KafkaProducerConfig struct {
	Brokers          []string
	SaleEventsTopic  string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		SaleEventsTopic:  "seatflow-sales",
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

func ProducerConfigFromKafka(cfg config.KafkaConfig) *KafkaProducerConfig {
	producerCfg := DefaultKafkaProducerConfig()
	producerCfg.Brokers = cfg.Brokers
	producerCfg.SaleEventsTopic = cfg.SaleEventsTopic
	return producerCfg
}

// SaleEventProducer publishes sale outcomes to Kafka. It implements sales.Publisher.
type SaleEventProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewSaleEventProducer creates a new Kafka producer for sale events
func NewSaleEventProducer(config *KafkaProducerConfig) (*SaleEventProducer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Idempotent producers need a single in-flight request
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Messages for one event land on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewSaleEventProducerWith(producer, config.SaleEventsTopic), nil
}

// NewSaleEventProducerWith wraps an existing sarama producer
func NewSaleEventProducerWith(producer sarama.SyncProducer, topic string) *SaleEventProducer {
	return &SaleEventProducer{
		producer: producer,
		topic:    topic,
		log:      logger.GetDefault(),
	}
}

func (p *SaleEventProducer) PublishSaleConfirmed(ctx context.Context, sale *sales.Sale) error {
	msg := NewSaleConfirmedMessage(sale)
	messageBytes, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal sale event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(fmt.Sprintf("%d", sale.ExternalEventID)),
		Value:   sarama.ByteEncoder(messageBytes),
		Headers: p.createHeaders(msg),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send sale event to Kafka: %w", err)
	}

	p.log.DebugContext(ctx, "sale event published",
		slog.String("topic", p.topic),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
		slog.String("sale_id", msg.SaleID))
	return nil
}

func (p *SaleEventProducer) createHeaders(msg SaleConfirmedMessage) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(msg.Type)},
		{Key: []byte("sale_id"), Value: []byte(msg.SaleID)},
		{Key: []byte("producer"), Value: []byte("seatflow")},
		{Key: []byte("version"), Value: []byte("1.0")},
	}
}

func (p *SaleEventProducer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
