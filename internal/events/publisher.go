package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vaultpay/internal/models"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers committed outbox events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, event models.OutboxEvent) error
	Close() error
}

// Envelope is the wire format consumers receive.
type Envelope struct {
	ID            uint        `json:"id"`
	AggregateType string      `json:"aggregate_type"`
	AggregateID   string      `json:"aggregate_id"`
	EventType     string      `json:"event_type"`
	Payload       models.JSON `json:"payload"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to one topic. Messages
// are keyed by aggregate ID so consumers see each aggregate's events
// in order.
func NewKafkaPublisher(brokers []string, topic string) Publisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event models.OutboxEvent) error {
	value, err := json.Marshal(Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       event.Payload,
		OccurredAt:    event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event %d: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %d: %w", event.ID, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
