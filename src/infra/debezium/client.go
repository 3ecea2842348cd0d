package debezium

import (
	"context"
	"fmt"
	"freightapi/src/infra/kafka"
	"log/slog"
)

// CDCBatchEventHandler is the function signature for handling batches of CDC events
type CDCBatchEventHandler func(ctx context.Context, events []*CDCEvent) error

// MessageConsumer is the part of the kafka client the CDC client needs.
type MessageConsumer interface {
	Consumer(ctx context.Context, handler kafka.Handler, topic string) error
	Close() error
}

// CDCClient implements CDC event consumption using Kafka
type CDCClient struct {
	logger     *slog.Logger
	consumer   MessageConsumer
	serializer *CDCSerializer
	topic      string
}

func NewCDCClient(logger *slog.Logger, topic string, consumer MessageConsumer, serializer *CDCSerializer) *CDCClient {
	return &CDCClient{
		logger:     logger,
		consumer:   consumer,
		serializer: serializer,
		topic:      topic,
	}
}

// ConsumeCDCEventsBatch starts consuming CDC events and calls handler for batches of valid events
func (c *CDCClient) ConsumeCDCEventsBatch(ctx context.Context, handler CDCBatchEventHandler) error {
	c.logger.Info("Starting CDC batch event consumption", "topic", c.topic)

	kafkaHandler := func(messages []kafka.Message) error {
		return c.ProcessMessages(ctx, messages, handler)
	}

	return c.consumer.Consumer(ctx, kafkaHandler, c.topic)
}

// ProcessMessages parses a batch of Kafka messages and hands the valid CDC events to handler.
// Unparseable messages are logged and dropped; a handler error fails the whole batch so
// it gets redelivered.
func (c *CDCClient) ProcessMessages(ctx context.Context, messages []kafka.Message, handler CDCBatchEventHandler) error {
	if len(messages) == 0 {
		return nil
	}

	var validEvents []*CDCEvent
	skippedCount := 0
	errorCount := 0

	for _, msg := range messages {
		cdcEvent, err := c.serializer.ParseCDCEvent(msg.Value)
		if err != nil {
			c.logger.Error("Failed to parse CDC message",
				"error", err,
				"key", msg.Key,
				"value_length", len(msg.Value))
			errorCount++
			continue
		}

		if cdcEvent == nil || !c.serializer.ShouldProcessEvent(cdcEvent) {
			skippedCount++
			continue
		}

		validEvents = append(validEvents, cdcEvent)
	}

	if len(validEvents) > 0 {
		if err := handler(ctx, validEvents); err != nil {
			return fmt.Errorf("failed to handle CDC events batch: %w", err)
		}
	}

	c.logger.Info("Completed CDC messages batch processing",
		"total", len(messages),
		"processed", len(validEvents),
		"skipped", skippedCount,
		"errors", errorCount)

	if errorCount > 0 && len(validEvents) == 0 && skippedCount == 0 {
		return fmt.Errorf("failed to process any CDC messages in batch")
	}

	return nil
}

// Close closes the CDC client
func (c *CDCClient) Close() error {
	c.logger.Info("Closing CDC client")
	return c.consumer.Close()
}
