// Package kafka provides an events.Publisher backed by Kafka, for
// deployments that route ledger events through a broker instead of
// Redis Streams.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bankdata/bankcore/internal/events"
)

// Publisher writes one message per event. The stream name becomes the
// Kafka topic; the event type becomes the message key so consumers can
// partition by kind.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	event := events.Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: stream,
		Key:   []byte(eventType),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ events.Publisher = (*Publisher)(nil)
