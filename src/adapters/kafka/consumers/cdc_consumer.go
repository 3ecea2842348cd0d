package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"freightapi/src/infra/debezium"
	"freightapi/src/repositories"
	"freightapi/src/services/events"
)

// EventPublisher publishes a batch of transformed domain events.
type EventPublisher interface {
	PublishDomainEvents(ctx context.Context, events []events.DomainEventWithMetadata) error
}

type CDCConsumer struct {
	logger         *slog.Logger
	cdcClient      *debezium.CDCClient
	transformer    *events.CDCTransformer
	eventPublisher EventPublisher
	cache          repositories.CacheInvalidator
}

// NewCDCConsumer monta o consumidor. cache pode ser nil quando não há Redis.
func NewCDCConsumer(
	logger *slog.Logger,
	cdcClient *debezium.CDCClient,
	transformer *events.CDCTransformer,
	eventPublisher EventPublisher,
	cache repositories.CacheInvalidator,
) *CDCConsumer {
	return &CDCConsumer{
		logger:         logger,
		cdcClient:      cdcClient,
		transformer:    transformer,
		eventPublisher: eventPublisher,
		cache:          cache,
	}
}

func (c *CDCConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting CDC consumer")

	return c.cdcClient.ConsumeCDCEventsBatch(ctx, c.HandleCDCEventsBatch)
}

// HandleCDCEventsBatch transforms the batch, publishes the resulting domain events and
// then drops cached reads of the affected freights. A publish error fails the batch
// so Kafka redelivers it.
func (c *CDCConsumer) HandleCDCEventsBatch(ctx context.Context, cdcEvents []*debezium.CDCEvent) error {
	if len(cdcEvents) == 0 {
		return nil
	}

	c.logger.Debug("Processing CDC events batch", "count", len(cdcEvents))

	var allDomainEvents []events.DomainEventWithMetadata
	processedCount := 0
	errorCount := 0

	for _, cdcEvent := range cdcEvents {
		domainEvents, err := c.transformer.TransformCDCEvent(ctx, cdcEvent)
		if err != nil {
			c.logger.Error("Failed to transform CDC event",
				"error", err,
				"table", cdcEvent.Source.Table,
				"operation", cdcEvent.Operation)
			errorCount++
			continue
		}

		allDomainEvents = append(allDomainEvents, domainEvents...)
		processedCount++
	}

	if len(allDomainEvents) == 0 {
		return nil
	}

	if err := c.eventPublisher.PublishDomainEvents(ctx, allDomainEvents); err != nil {
		return fmt.Errorf("failed to publish domain events batch: %w", err)
	}

	c.logger.Info("Successfully published domain events batch",
		"cdc_events_processed", processedCount,
		"domain_events_published", len(allDomainEvents))

	if errorCount > 0 {
		c.logger.Warn("Some CDC events failed to transform",
			"failed", errorCount,
			"successful", processedCount)
	}

	c.invalidateCache(ctx, allDomainEvents)

	return nil
}

// Writes feitos fora da API (migrações, SQL manual) também chegam aqui, então o
// cache é invalidado mesmo que a API já tenha feito isso.
func (c *CDCConsumer) invalidateCache(ctx context.Context, domainEvents []events.DomainEventWithMetadata) {
	if c.cache == nil {
		return
	}

	seen := make(map[int64]bool, len(domainEvents))
	freightIDs := make([]int64, 0, len(domainEvents))
	for _, event := range domainEvents {
		if id := event.Data.FreightID; !seen[id] {
			seen[id] = true
			freightIDs = append(freightIDs, id)
		}
	}

	if err := c.cache.InvalidateByFreightIDs(ctx, freightIDs); err != nil {
		c.logger.Error("Failed to invalidate freight cache", "freights", len(freightIDs), "error", err)
	}
}

// Close gracefully shuts down the CDC consumer
func (c *CDCConsumer) Close() error {
	c.logger.Info("Closing CDC consumer")
	return c.cdcClient.Close()
}
