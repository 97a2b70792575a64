package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"docchat/internal/config"
	"docchat/internal/models"
)

// EventPublisher sends ingestion lifecycle events to a Kafka topic.
type EventPublisher struct {
	writer *kafka.Writer
}

// NewEventPublisher creates a publisher for the configured topic.
func NewEventPublisher(cfg *config.KafkaConfig) *EventPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	})
	return &EventPublisher{writer: writer}
}

// PublishIngested serializes the event as JSON and writes it keyed by
// document id, so events for one document stay ordered within a partition.
func (p *EventPublisher) PublishIngested(ctx context.Context, event *models.IngestionEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ingestion event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DocumentID),
		Value: jsonData,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
