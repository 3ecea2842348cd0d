package freight_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"freightapi/src/domain"
	"freightapi/src/domain/entities"
	"freightapi/src/repositories"
	"freightapi/src/services/freight"
	"freightapi/src/test_artefacts/stubs"
)

type fakeInvalidator struct {
	invalidated [][]int64
	err         error
}

func (f *fakeInvalidator) InvalidateByFreightIDs(_ context.Context, freightIDs []int64) error {
	f.invalidated = append(f.invalidated, freightIDs)
	return f.err
}

var _ = Describe("FreightService", func() {
	var (
		store       *repositories.MemoryFreightRepository
		invalidator *fakeInvalidator
		service     *freight.FreightService
		ctx         context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = repositories.NewMemoryFreightRepository()
		invalidator = &fakeInvalidator{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = freight.NewFreightService(logger, store, store, invalidator)
	})

	Context("Create", func() {
		It("should ignore a client supplied id and invalidate the cache", func() {
			// ARRANGE
			input := stubs.NewFreightStub().WithID(999).Get()

			// ACT
			created, err := service.Create(ctx, input)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal(int64(1)))
			Expect(invalidator.invalidated).To(Equal([][]int64{{1}}))
		})

		It("should still succeed when the cache invalidation fails", func() {
			// ARRANGE
			invalidator.err = errors.New("redis down")

			// ACT
			created, err := service.Create(ctx, stubs.NewFreightStub().Get())

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal(int64(1)))
		})
	})

	Context("GetByID", func() {
		It("should wrap ErrFreightNotFound", func() {
			_, err := service.GetByID(ctx, 10)
			Expect(err).To(MatchError(domain.ErrFreightNotFound))
		})
	})

	Context("Update", func() {
		var created entities.Freight

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, stubs.NewFreightStub().WithStatus("pending").Get())
			Expect(err).NotTo(HaveOccurred())
			invalidator.invalidated = nil
		})

		It("should apply the patch and invalidate the freight", func() {
			// ARRANGE
			status := "delivered"

			// ACT
			updated, err := service.Update(ctx, created.ID, domain.FreightPatch{Status: &status, StatusSet: true})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(*updated.Status).To(Equal("delivered"))
			Expect(updated.UpdatedAt).NotTo(BeTemporally("<", created.UpdatedAt))
			Expect(invalidator.invalidated).To(Equal([][]int64{{created.ID}}))
		})

		It("should not invalidate anything when the freight does not exist", func() {
			// ACT
			_, err := service.Update(ctx, 404, domain.FreightPatch{})

			// ASSERT
			Expect(err).To(MatchError(domain.ErrFreightNotFound))
			Expect(invalidator.invalidated).To(BeEmpty())
		})
	})

	Context("Delete", func() {
		It("should delete and then report NotFound", func() {
			// ARRANGE
			created, err := service.Create(ctx, stubs.NewFreightStub().Get())
			Expect(err).NotTo(HaveOccurred())

			// ACT
			err = service.Delete(ctx, created.ID)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			_, err = service.GetByID(ctx, created.ID)
			Expect(err).To(MatchError(domain.ErrFreightNotFound))
			Expect(service.Delete(ctx, created.ID)).To(MatchError(domain.ErrFreightNotFound))
		})
	})

	Context("Search", func() {
		BeforeEach(func() {
			for i := 0; i < 5; i++ {
				_, err := service.Create(ctx, stubs.NewFreightStub().Get())
				Expect(err).NotTo(HaveOccurred())
			}
		})

		DescribeTable("should reject invalid paging",
			func(page, size int, field string) {
				_, err := service.Search(ctx, domain.SearchQuery{Page: page, Size: size})

				var validationErr *domain.ValidationError
				Expect(errors.As(err, &validationErr)).To(BeTrue())
				Expect(validationErr.Field).To(Equal(field))
				Expect(err).To(MatchError(domain.ErrValidation))
			},
			Entry("negative page", -1, 10, "page"),
			Entry("zero size", 0, 0, "size"),
			Entry("negative size", 0, -5, "size"),
		)

		It("should clamp the page size", func() {
			// ARRANGE
			service.WithMaxPageSize(2)

			// ACT
			page, err := service.Search(ctx, domain.SearchQuery{Page: 0, Size: 50})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Size).To(Equal(2))
			Expect(page.Items).To(HaveLen(2))
			Expect(page.Total).To(Equal(int64(5)))
			Expect(page.TotalPages()).To(Equal(3))
		})
	})
})
