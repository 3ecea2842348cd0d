package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"freightapi/src/domain"
	"freightapi/src/domain/entities"
	"freightapi/src/infra/redis"
	"freightapi/src/repositories"
	"freightapi/src/test_artefacts/comparer"
	"freightapi/src/test_artefacts/stubs"
)

// countingReader conta quantas leituras chegaram ao backend.
type countingReader struct {
	repositories.FreightReader
	mu       sync.Mutex
	getCalls int
	searches int
}

func (r *countingReader) GetByID(ctx context.Context, id int64) (entities.Freight, error) {
	r.mu.Lock()
	r.getCalls++
	r.mu.Unlock()
	return r.FreightReader.GetByID(ctx, id)
}

func (r *countingReader) Search(ctx context.Context, query domain.SearchQuery) (domain.FreightPage, error) {
	r.mu.Lock()
	r.searches++
	r.mu.Unlock()
	return r.FreightReader.Search(ctx, query)
}

func (r *countingReader) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls, r.searches
}

// interleavingReader roda onRead depois da leitura no backend e antes do retorno,
// simulando um write concorrente com um cache miss.
type interleavingReader struct {
	repositories.FreightReader
	onRead func()
}

func (r *interleavingReader) GetByID(ctx context.Context, id int64) (entities.Freight, error) {
	freight, err := r.FreightReader.GetByID(ctx, id)
	if r.onRead != nil {
		r.onRead()
	}
	return freight, err
}

type recordingObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *recordingObserver) ObserveCacheLookup(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func (o *recordingObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.results...)
}

var _ = Describe("CachedFreightQueryRepository", func() {
	var (
		miniRedis   *miniredis.Miniredis
		redisClient *redis.RedisClient
		store       *repositories.MemoryFreightRepository
		reader      *countingReader
		observer    *recordingObserver
		repository  *repositories.CachedFreightQueryRepository
		ctx         context.Context
		created     entities.Freight
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		miniRedis, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		redisClient = redis.NewRedisClient(miniRedis.Addr(), 5, time.Minute).WithPrefix("test:")
		store = repositories.NewMemoryFreightRepository()
		reader = &countingReader{FreightReader: store}
		observer = &recordingObserver{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))

		repository = repositories.NewCachedFreightQueryRepository(logger, reader, redisClient, observer)

		created, err = store.Create(ctx, stubs.NewFreightStub().WithStatus("pending").Get())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		redisClient.Close()
		miniRedis.Close()
	})

	Context("GetByID", func() {
		It("should serve the second read from Redis", func() {
			// ACT
			first, err := repository.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() bool {
				return miniRedis.Exists("test:registry:freight:{1}")
			}).Should(BeTrue())

			second, err := repository.GetByID(ctx, created.ID)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeComparableTo(first, comparer.TimeWithinTolerance(0), comparer.JSONRawMessage()))
			getCalls, _ := reader.counts()
			Expect(getCalls).To(Equal(1))
			Expect(observer.snapshot()).To(Equal([]string{"miss", "hit"}))
		})

		It("should not cache NotFound", func() {
			// ACT
			_, err := repository.GetByID(ctx, 999)

			// ASSERT
			Expect(err).To(MatchError(domain.ErrFreightNotFound))
			Consistently(func() []string {
				return miniRedis.Keys()
			}, 100*time.Millisecond).Should(BeEmpty())
		})

		It("should fall back to the reader when Redis is down", func() {
			// ARRANGE
			miniRedis.Close()

			// ACT
			found, err := repository.GetByID(ctx, created.ID)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))
			Expect(observer.snapshot()).To(Equal([]string{"error"}))
		})
	})

	Context("Search", func() {
		It("should cache pages per query, page and size", func() {
			// ARRANGE
			query := domain.SearchQuery{Query: "pend", Page: 0, Size: 10}

			// ACT
			_, err := repository.Search(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			Eventually(func() bool {
				return miniRedis.Exists("test:registry:freight:{search}")
			}).Should(BeTrue())

			cached, err := repository.Search(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			_, err = repository.Search(ctx, domain.SearchQuery{Query: "pend", Page: 1, Size: 10})
			Expect(err).NotTo(HaveOccurred())

			// ASSERT
			Expect(cached.Total).To(Equal(int64(1)))
			Expect(cached.Items).To(HaveLen(1))
			_, searches := reader.counts()
			Expect(searches).To(Equal(2))
		})
	})

	Context("InvalidateByFreightIDs", func() {
		It("should drop the freight entry and every cached search", func() {
			// ARRANGE
			_, err := repository.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = repository.Search(ctx, domain.SearchQuery{Size: 10})
			Expect(err).NotTo(HaveOccurred())
			Eventually(func() bool {
				return miniRedis.Exists("test:registry:freight:{1}") && miniRedis.Exists("test:registry:freight:{search}")
			}).Should(BeTrue())

			status := "delivered"
			_, err = store.Update(ctx, created.ID, domain.FreightPatch{Status: &status, StatusSet: true})
			Expect(err).NotTo(HaveOccurred())

			// ACT
			err = repository.InvalidateByFreightIDs(ctx, []int64{created.ID})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(miniRedis.Keys()).To(ConsistOf("test:version:freight:{1}", "test:version:freight:{search}"))

			found, err := repository.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*found.Status).To(Equal("delivered"))

			page, err := repository.Search(ctx, domain.SearchQuery{Query: "delivered", Size: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(int64(1)))
		})

		It("should discard a fill that read the record before a concurrent write", func() {
			// ARRANGE
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			racing := &interleavingReader{FreightReader: store}
			racingRepository := repositories.NewCachedFreightQueryRepository(logger, racing, redisClient, nil)

			status := "delivered"
			racing.onRead = func() {
				racing.onRead = nil
				_, err := store.Update(ctx, created.ID, domain.FreightPatch{Status: &status, StatusSet: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(racingRepository.InvalidateByFreightIDs(ctx, []int64{created.ID})).To(Succeed())
			}

			// ACT
			stale, err := racingRepository.GetByID(ctx, created.ID)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(*stale.Status).To(Equal("pending"))
			Consistently(func() bool {
				return miniRedis.Exists("test:freight:{1}:id")
			}, 200*time.Millisecond).Should(BeFalse())

			fresh, err := racingRepository.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*fresh.Status).To(Equal("delivered"))
		})

		It("should be a no-op without Redis", func() {
			// ARRANGE
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			passThrough := repositories.NewCachedFreightQueryRepository(logger, reader, nil, nil)

			// ACT
			found, err := passThrough.GetByID(ctx, created.ID)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))
			Expect(passThrough.InvalidateByFreightIDs(ctx, []int64{created.ID})).To(Succeed())
		})
	})
})
