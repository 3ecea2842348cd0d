package debezium_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"freightapi/src/infra/debezium"
	"freightapi/src/infra/kafka"
)

// stubConsumer entrega um único lote ao handler, como o consumer group faria.
type stubConsumer struct {
	batch     []kafka.Message
	handleErr error
	closed    bool
}

func (s *stubConsumer) Consumer(_ context.Context, handler kafka.Handler, _ string) error {
	s.handleErr = handler(s.batch)
	return nil
}

func (s *stubConsumer) Close() error {
	s.closed = true
	return nil
}

var _ = Describe("CDCClient", func() {
	var (
		consumer *stubConsumer
		client   *debezium.CDCClient
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		consumer = &stubConsumer{}
		serializer := &debezium.CDCSerializer{IncludeTables: []string{"freight"}}
		client = debezium.NewCDCClient(slog.New(slog.NewTextHandler(io.Discard, nil)), "cdc.freight", consumer, serializer)
	})

	It("should hand only valid, monitored events to the handler", func() {
		// ARRANGE
		consumer.batch = []kafka.Message{
			{Value: []byte(`{"after":{"id":1},"source":{"table":"freight"},"op":"c"}`)},
			{Value: []byte(`{"after":{"id":2},"source":{"table":"other"},"op":"c"}`)},
			{Value: nil},
			{Value: []byte(`garbage`)},
		}
		var received []*debezium.CDCEvent

		// ACT
		err := client.ConsumeCDCEventsBatch(ctx, func(_ context.Context, events []*debezium.CDCEvent) error {
			received = events
			return nil
		})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(consumer.handleErr).NotTo(HaveOccurred())
		Expect(received).To(HaveLen(1))
		Expect(received[0].After).To(HaveKeyWithValue("id", float64(1)))
	})

	It("should fail the batch when the handler fails", func() {
		// ARRANGE
		messages := []kafka.Message{{Value: []byte(`{"after":{"id":1},"source":{"table":"freight"},"op":"c"}`)}}

		// ACT
		err := client.ProcessMessages(ctx, messages, func(context.Context, []*debezium.CDCEvent) error {
			return errors.New("publish failed")
		})

		// ASSERT
		Expect(err).To(MatchError(ContainSubstring("publish failed")))
	})

	It("should fail a batch where nothing could be parsed", func() {
		err := client.ProcessMessages(ctx, []kafka.Message{{Value: []byte(`garbage`)}}, func(context.Context, []*debezium.CDCEvent) error {
			Fail("handler should not be called")
			return nil
		})

		Expect(err).To(HaveOccurred())
	})

	It("should close the underlying consumer", func() {
		Expect(client.Close()).To(Succeed())
		Expect(consumer.closed).To(BeTrue())
	})
})
