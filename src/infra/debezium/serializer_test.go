package debezium_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"freightapi/src/infra/debezium"
)

var _ = Describe("CDCSerializer", func() {
	var serializer *debezium.CDCSerializer

	BeforeEach(func() {
		serializer = &debezium.CDCSerializer{IncludeTables: []string{"freight"}}
	})

	Context("ParseCDCEvent", func() {
		It("should parse a bare event", func() {
			// ARRANGE
			message := []byte(`{"before":null,"after":{"id":1,"status":"pending"},"source":{"table":"freight","lsn":99},"op":"c","ts_ms":1700000000000}`)

			// ACT
			event, err := serializer.ParseCDCEvent(message)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(event.Operation).To(Equal("c"))
			Expect(event.Source.Table).To(Equal("freight"))
			Expect(event.Source.LSN).To(Equal(int64(99)))
			Expect(event.Row()).To(HaveKeyWithValue("status", "pending"))
		})

		It("should unwrap the schema envelope", func() {
			// ARRANGE
			message := []byte(`{"schema":{},"payload":{"before":{"id":1},"after":null,"source":{"table":"freight"},"op":"d","ts_ms":1}}`)

			// ACT
			event, err := serializer.ParseCDCEvent(message)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(event.Operation).To(Equal("d"))
			Expect(event.Row()).To(HaveKeyWithValue("id", float64(1)))
		})

		It("should return nil for a tombstone", func() {
			event, err := serializer.ParseCDCEvent(nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(event).To(BeNil())
		})

		DescribeTable("should reject invalid events",
			func(message string) {
				_, err := serializer.ParseCDCEvent([]byte(message))
				Expect(err).To(HaveOccurred())
			},
			Entry("not JSON", `not-json`),
			Entry("missing table", `{"after":{"id":1},"source":{},"op":"c"}`),
			Entry("create without after", `{"source":{"table":"freight"},"op":"c"}`),
			Entry("delete without before", `{"source":{"table":"freight"},"op":"d"}`),
			Entry("unknown operation", `{"after":{"id":1},"source":{"table":"freight"},"op":"x"}`),
		)
	})

	Context("ShouldProcessEvent", func() {
		It("should filter by table, accepting wildcard prefixes", func() {
			serializer.IncludeTables = []string{"freight", "archive_*"}

			Expect(serializer.ShouldProcessEvent(&debezium.CDCEvent{Source: debezium.CDCSource{Table: "freight"}, Operation: "c"})).To(BeTrue())
			Expect(serializer.ShouldProcessEvent(&debezium.CDCEvent{Source: debezium.CDCSource{Table: "archive_2025"}, Operation: "c"})).To(BeTrue())
			Expect(serializer.ShouldProcessEvent(&debezium.CDCEvent{Source: debezium.CDCSource{Table: "schema_migrations"}, Operation: "c"})).To(BeFalse())
		})

		It("should skip snapshot reads when configured", func() {
			serializer.SkipSnapshots = true

			Expect(serializer.ShouldProcessEvent(&debezium.CDCEvent{Source: debezium.CDCSource{Table: "freight"}, Operation: "r"})).To(BeFalse())
		})
	})

	DescribeTable("MapCDCOperation",
		func(op, expected string) {
			Expect(debezium.MapCDCOperation(op)).To(Equal(expected))
		},
		Entry("create", "c", "INSERT"),
		Entry("snapshot read", "r", "INSERT"),
		Entry("update", "u", "UPDATE"),
		Entry("delete", "d", "DELETE"),
		Entry("unknown", "x", "UNKNOWN"),
	)
})
