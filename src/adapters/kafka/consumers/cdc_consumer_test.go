package consumers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"freightapi/src/adapters/kafka/consumers"
	"freightapi/src/domain"
	"freightapi/src/infra/debezium"
	"freightapi/src/infra/kafka"
	"freightapi/src/services/events"
)

type fakePublisher struct {
	published []events.DomainEventWithMetadata
	err       error
}

func (f *fakePublisher) PublishDomainEvents(_ context.Context, domainEvents []events.DomainEventWithMetadata) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, domainEvents...)
	return nil
}

type fakeInvalidator struct {
	freightIDs []int64
}

func (f *fakeInvalidator) InvalidateByFreightIDs(_ context.Context, freightIDs []int64) error {
	f.freightIDs = append(f.freightIDs, freightIDs...)
	return nil
}

type noopConsumer struct{}

func (noopConsumer) Consumer(context.Context, kafka.Handler, string) error { return nil }
func (noopConsumer) Close() error                                          { return nil }

func freightEvent(op string, id float64, status string) *debezium.CDCEvent {
	row := map[string]interface{}{"id": id, "status": status}
	event := &debezium.CDCEvent{Operation: op, TsMs: 1700000000000, Source: debezium.CDCSource{Table: domain.TableFreight}}
	if op == "d" {
		event.Before = row
	} else {
		event.After = row
	}
	return event
}

var _ = Describe("CDCConsumer", func() {
	var (
		publisher   *fakePublisher
		invalidator *fakeInvalidator
		consumer    *consumers.CDCConsumer
		ctx         context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		publisher = &fakePublisher{}
		invalidator = &fakeInvalidator{}

		cdcClient := debezium.NewCDCClient(logger, "cdc.freight", noopConsumer{}, &debezium.CDCSerializer{IncludeTables: []string{domain.TableFreight}})
		consumer = consumers.NewCDCConsumer(logger, cdcClient, events.NewCDCTransformer(logger), publisher, invalidator)
	})

	It("should publish one event per change and invalidate each freight once", func() {
		// ARRANGE
		batch := []*debezium.CDCEvent{
			freightEvent("c", 1, "pending"),
			freightEvent("c", 2, "pending"),
			freightEvent("d", 1, "pending"),
		}

		// ACT
		err := consumer.HandleCDCEventsBatch(ctx, batch)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher.published).To(HaveLen(3))
		Expect(publisher.published[2].EventType).To(Equal(domain.EventTypeFreightDeleted))
		Expect(invalidator.freightIDs).To(Equal([]int64{1, 2}))
	})

	It("should keep going when one event cannot be transformed", func() {
		// ARRANGE
		broken := freightEvent("c", 0, "pending")
		delete(broken.After, "id")

		// ACT
		err := consumer.HandleCDCEventsBatch(ctx, []*debezium.CDCEvent{broken, freightEvent("c", 5, "pending")})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher.published).To(HaveLen(1))
		Expect(publisher.published[0].Data.FreightID).To(Equal(int64(5)))
	})

	It("should fail the batch and skip invalidation when publishing fails", func() {
		// ARRANGE
		publisher.err = errors.New("kafka unavailable")

		// ACT
		err := consumer.HandleCDCEventsBatch(ctx, []*debezium.CDCEvent{freightEvent("c", 1, "pending")})

		// ASSERT
		Expect(err).To(MatchError(ContainSubstring("kafka unavailable")))
		Expect(invalidator.freightIDs).To(BeEmpty())
	})

	It("should run without a cache", func() {
		// ARRANGE
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		cdcClient := debezium.NewCDCClient(logger, "cdc.freight", noopConsumer{}, &debezium.CDCSerializer{})
		withoutCache := consumers.NewCDCConsumer(logger, cdcClient, events.NewCDCTransformer(logger), publisher, nil)

		// ACT
		err := withoutCache.HandleCDCEventsBatch(ctx, []*debezium.CDCEvent{freightEvent("u", 3, "delivered")})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher.published).To(HaveLen(1))
	})
})
