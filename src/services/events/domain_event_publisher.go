package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"freightapi/src/domain"
	"freightapi/src/infra/kafka"

	"github.com/cenkalti/backoff/v4"
)

const sourceService = "freight-api"

// MessageProducer is the part of the kafka client the publisher needs.
type MessageProducer interface {
	Producer(messages []kafka.Message, topic string) error
}

type DomainEventPublisher struct {
	logger     *slog.Logger
	producer   MessageProducer
	topic      string
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

func NewDomainEventPublisher(
	logger *slog.Logger,
	producer MessageProducer,
	topic string,
) *DomainEventPublisher {
	return &DomainEventPublisher{
		logger:     logger,
		producer:   producer,
		topic:      topic,
		maxRetries: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
}

// WithRetryPolicy troca a política de retry (usado nos testes com ZeroBackOff).
func (p *DomainEventPublisher) WithRetryPolicy(maxRetries uint64, newBackOff func() backoff.BackOff) *DomainEventPublisher {
	p.maxRetries = maxRetries
	p.newBackOff = newBackOff
	return p
}

// DomainEventWithMetadata wraps a domain event with metadata needed for headers
type DomainEventWithMetadata struct {
	domain.DomainEvent
	EventID   string
	EventType string
}

// PublishDomainEvents publishes a batch of domain events to Kafka, retrying the whole
// batch with exponential backoff. Events are keyed by freight reference so every
// change of one freight lands on the same partition.
func (p *DomainEventPublisher) PublishDomainEvents(ctx context.Context, events []DomainEventWithMetadata) error {
	if len(events) == 0 {
		return nil
	}

	p.logger.Debug("Publishing domain events batch", "count", len(events))

	kafkaMessages := make([]kafka.Message, 0, len(events))

	for _, eventWithMetadata := range events {
		eventBytes, err := json.Marshal(eventWithMetadata.DomainEvent)
		if err != nil {
			p.logger.Error("Failed to marshal domain event",
				"error", err,
				"event_id", eventWithMetadata.EventID,
				"freight_reference", eventWithMetadata.Data.Reference)
			continue
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Key:     eventWithMetadata.Data.Reference,
			Value:   eventBytes,
			Headers: p.createEventHeaders(eventWithMetadata),
		})
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := p.producer.Producer(kafkaMessages, p.topic)
		if err != nil {
			p.logger.Warn("Domain events publish attempt failed",
				"attempt", attempt,
				"topic", p.topic,
				"error", err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		p.logger.Error("Failed to publish domain events to Kafka",
			"error", err,
			"topic", p.topic,
			"events_count", len(kafkaMessages),
			"attempts", attempt)
		return fmt.Errorf("failed to publish domain events to topic %s: %w", p.topic, err)
	}

	p.logger.Info("Successfully published domain events",
		"topic", p.topic,
		"events_count", len(kafkaMessages))

	return nil
}

// createEventHeaders creates Kafka headers for event filtering (SNS-like)
func (p *DomainEventPublisher) createEventHeaders(eventWithMetadata DomainEventWithMetadata) map[string]string {
	headers := map[string]string{
		"event_type":     eventWithMetadata.EventType,
		"source_service": sourceService,
		"schema_version": "v1",
		"event_id":       eventWithMetadata.EventID,
	}

	if eventWithMetadata.Data.Type != "" {
		headers["entity_type"] = eventWithMetadata.Data.Type
	}

	if fields := changedFields(eventWithMetadata.Data.Properties); len(fields) > 0 {
		headers["fields_changed"] = strings.Join(fields, ",")
	}

	if status, ok := eventWithMetadata.Data.Properties["status"]; ok && status.New != nil {
		headers["freight_status"] = fmt.Sprintf("%v", status.New)
	}

	return headers
}

func changedFields(properties map[string]domain.PropertyPair) []string {
	fields := make([]string, 0, len(properties))
	for field := range properties {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// PublishSingleEvent is a convenience method to publish a single domain event
func (p *DomainEventPublisher) PublishSingleEvent(ctx context.Context, event DomainEventWithMetadata) error {
	return p.PublishDomainEvents(ctx, []DomainEventWithMetadata{event})
}
