package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/churn-service/pkg/events"
	pkgkafka "github.com/bibbank/churn-service/pkg/kafka"
)

// MessageProducer is the subset of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// EventPublisher implements the EventPublisher port using Kafka. Each event
// goes to the topic named after its event type, keyed by aggregate id so all
// events of one training run land on the same partition.
type EventPublisher struct {
	producer MessageProducer
	logger   *slog.Logger
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(producer MessageProducer, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, logger: logger}
}

// Publish sends domain events to Kafka, grouped by topic in order.
func (p *EventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	var topics []string
	byTopic := make(map[string][]pkgkafka.Message)

	for _, evt := range evts {
		payload, err := events.NewEnvelope(evt).Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", evt.EventType(), err)
		}

		topic := evt.EventType()
		if _, seen := byTopic[topic]; !seen {
			topics = append(topics, topic)
		}
		byTopic[topic] = append(byTopic[topic], pkgkafka.Message{
			Key:   []byte(evt.AggregateID().String()),
			Value: payload,
			Headers: map[string]string{
				"event_type":   evt.EventType(),
				"event_id":     evt.EventID().String(),
				"content_type": "application/json",
			},
		})

		p.logger.DebugContext(ctx, "publishing event to Kafka",
			slog.String("topic", topic),
			slog.String("event_type", evt.EventType()),
			slog.Int("payload_size", len(payload)),
		)
	}

	for _, topic := range topics {
		if err := p.producer.Publish(ctx, topic, byTopic[topic]...); err != nil {
			return fmt.Errorf("failed to publish events to topic %s: %w", topic, err)
		}
	}
	return nil
}

// LogPublisher stands in for Kafka when no broker is configured and only
// logs the events it is given.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs each event.
func (p *LogPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	for _, evt := range evts {
		p.logger.InfoContext(ctx, "domain event (no broker configured)",
			slog.String("event_type", evt.EventType()),
			slog.String("aggregate_id", evt.AggregateID().String()),
		)
	}
	return nil
}
