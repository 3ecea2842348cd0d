package redis_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"freightapi/src/infra/redis"
)

var _ = Describe("RedisClient", func() {
	var (
		miniRedis *miniredis.Miniredis
		client    *redis.RedisClient
		ctx       context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		miniRedis, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		client = redis.NewRedisClient(miniRedis.Addr(), 2, 30*time.Second).WithPrefix("t:")
	})

	AfterEach(func() {
		client.Close()
		miniRedis.Close()
	})

	It("should store the value and register the key with a TTL", func() {
		// ACT
		err := client.SetWithRegistry(ctx, "freight:id:1", `{"id":1}`, []string{"registry:freight:1"})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		value, found, err := client.GetKey(ctx, "freight:id:1")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(value).To(Equal(`{"id":1}`))

		members, err := miniRedis.Members("t:registry:freight:1")
		Expect(err).NotTo(HaveOccurred())
		Expect(members).To(ConsistOf("freight:id:1"))
		Expect(miniRedis.TTL("t:freight:id:1")).To(Equal(30 * time.Second))
	})

	It("should report a miss for unknown and expired keys", func() {
		// ARRANGE
		Expect(client.SetWithRegistry(ctx, "k", "v", nil)).To(Succeed())
		miniRedis.FastForward(31 * time.Second)

		// ACT
		_, expiredFound, expiredErr := client.GetKey(ctx, "k")
		_, unknownFound, unknownErr := client.GetKey(ctx, "unknown")

		// ASSERT
		Expect(expiredErr).NotTo(HaveOccurred())
		Expect(unknownErr).NotTo(HaveOccurred())
		Expect(expiredFound).To(BeFalse())
		Expect(unknownFound).To(BeFalse())
	})

	It("should read several registries at once, empty ones included", func() {
		// ARRANGE
		Expect(client.SetWithRegistry(ctx, "a", "1", []string{"reg:1", "reg:all"})).To(Succeed())
		Expect(client.SetWithRegistry(ctx, "b", "2", []string{"reg:all"})).To(Succeed())

		// ACT
		result, err := client.GetMultipleSetMembers(ctx, []string{"reg:1", "reg:all", "reg:none"})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(result["reg:1"]).To(ConsistOf("a"))
		Expect(result["reg:all"]).To(ConsistOf("a", "b"))
		Expect(result["reg:none"]).To(BeEmpty())
	})

	It("should invalidate keys and flush only its prefix", func() {
		// ARRANGE
		Expect(client.SetWithRegistry(ctx, "a", "1", nil)).To(Succeed())
		Expect(client.SetWithRegistry(ctx, "b", "2", nil)).To(Succeed())
		Expect(miniRedis.Set("other:key", "x")).To(Succeed())

		// ACT
		Expect(client.InvalidateKeys(ctx, []string{"a"})).To(Succeed())
		_, found, err := client.GetKey(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())

		Expect(client.FlushByPrefix(ctx)).To(Succeed())

		// ASSERT
		Expect(miniRedis.Keys()).To(Equal([]string{"other:key"}))
	})

	Context("versioned fills", func() {
		It("should store when the version is unchanged", func() {
			// ARRANGE
			version, err := client.GetVersion(ctx, "version:{1}")
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())

			// ACT
			stored, err := client.SetWithRegistryIfVersion(ctx, "version:{1}", version, "entry:{1}", "v1", []string{"registry:{1}"})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeTrue())
			value, found, err := client.GetKey(ctx, "entry:{1}")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(value).To(Equal("v1"))
		})

		It("should skip the write after the version was bumped", func() {
			// ARRANGE
			version, err := client.GetVersion(ctx, "version:{1}")
			Expect(err).NotTo(HaveOccurred())
			Expect(client.BumpVersions(ctx, []string{"version:{1}", "version:{2}"})).To(Succeed())

			// ACT
			stored, err := client.SetWithRegistryIfVersion(ctx, "version:{1}", version, "entry:{1}", "stale", []string{"registry:{1}"})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeFalse())
			Expect(miniRedis.Exists("t:entry:{1}")).To(BeFalse())
			Expect(miniRedis.Exists("t:registry:{1}")).To(BeFalse())

			bumped, err := client.GetVersion(ctx, "version:{1}")
			Expect(err).NotTo(HaveOccurred())
			Expect(bumped).To(Equal(int64(1)))
			Expect(miniRedis.TTL("t:version:{2}")).To(Equal(24 * time.Hour))
		})
	})

	It("should pass the health check", func() {
		Expect(client.HealthCheck(ctx)).To(Succeed())
	})
})
