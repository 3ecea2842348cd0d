package repositories

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"freightapi/src/domain"
	"freightapi/src/domain/entities"
	"freightapi/src/infra/redis"
)

// Hash tags ({id} / {search}) deixam entrada, registry e versão no mesmo slot do cluster,
// exigência do WATCH usado no fill condicional.
const (
	searchRegistryKey = "registry:freight:{search}"
	searchVersionKey  = "version:freight:{search}"
)

// CacheObserver receives "hit", "miss" and "error" for every lookup.
type CacheObserver interface {
	ObserveCacheLookup(result string)
}

// CachedFreightQueryRepository é um read-through na frente do FreightReader.
// Cada chave de cache é registrada num set por freight (e as buscas num set próprio)
// para que um write invalide só o que foi afetado. A versão lida antes do banco impede
// que um fill atrasado regrave um valor já invalidado.
type CachedFreightQueryRepository struct {
	logger      *slog.Logger
	reader      FreightReader
	redisClient *redis.RedisClient
	observer    CacheObserver
	fillTimeout time.Duration
}

func NewCachedFreightQueryRepository(
	logger *slog.Logger,
	reader FreightReader,
	redisClient *redis.RedisClient,
	observer CacheObserver,
) *CachedFreightQueryRepository {
	return &CachedFreightQueryRepository{
		logger:      logger,
		reader:      reader,
		redisClient: redisClient,
		observer:    observer,
		fillTimeout: 30 * time.Second,
	}
}

func (r *CachedFreightQueryRepository) GetByID(ctx context.Context, id int64) (entities.Freight, error) {
	cacheKey := fmt.Sprintf("freight:{%d}:id", id)

	var cached entities.Freight
	if r.getFromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	versionKey := freightVersionKey(id)
	version, versionOK := r.currentVersion(ctx, versionKey)

	freight, err := r.reader.GetByID(ctx, id)
	if err != nil {
		return entities.Freight{}, err
	}

	if versionOK {
		r.setInCacheAsync(versionKey, version, cacheKey, freight, []string{freightRegistryKey(id)})
	}

	return freight, nil
}

func (r *CachedFreightQueryRepository) Search(ctx context.Context, query domain.SearchQuery) (domain.FreightPage, error) {
	cacheKey := r.generateSearchCacheKey(query)

	var cached domain.FreightPage
	if r.getFromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	version, versionOK := r.currentVersion(ctx, searchVersionKey)

	page, err := r.reader.Search(ctx, query)
	if err != nil {
		return domain.FreightPage{}, err
	}

	if versionOK {
		r.setInCacheAsync(searchVersionKey, version, cacheKey, page, []string{searchRegistryKey})
	}

	return page, nil
}

// InvalidateByFreightIDs drops cached lookups for the given freights and every cached
// search, since any write may change search results. Versions are bumped first so a
// fill that read the database before the write is discarded.
func (r *CachedFreightQueryRepository) InvalidateByFreightIDs(ctx context.Context, freightIDs []int64) error {
	if r.redisClient == nil {
		return nil
	}

	registryKeys := make([]string, 0, len(freightIDs)+1)
	versionKeys := make([]string, 0, len(freightIDs)+1)
	for _, freightID := range freightIDs {
		registryKeys = append(registryKeys, freightRegistryKey(freightID))
		versionKeys = append(versionKeys, freightVersionKey(freightID))
	}
	registryKeys = append(registryKeys, searchRegistryKey)
	versionKeys = append(versionKeys, searchVersionKey)

	if err := r.redisClient.BumpVersions(ctx, versionKeys); err != nil {
		return fmt.Errorf("CachedFreightQueryRepository.InvalidateByFreightIDs - failed to bump versions: %w", err)
	}

	registryResults, err := r.redisClient.GetMultipleSetMembers(ctx, registryKeys)
	if err != nil {
		return fmt.Errorf("CachedFreightQueryRepository.InvalidateByFreightIDs - failed to get registry data: %w", err)
	}

	keysToDelete := make([]string, 0)
	seen := make(map[string]bool)
	for registryKey, relatedKeys := range registryResults {
		for _, key := range append(relatedKeys, registryKey) {
			if !seen[key] {
				seen[key] = true
				keysToDelete = append(keysToDelete, key)
			}
		}
	}

	r.logger.Debug("Invalidating cache keys", "keys", len(keysToDelete), "freights", len(freightIDs))

	return r.redisClient.InvalidateKeys(ctx, keysToDelete)
}

func (r *CachedFreightQueryRepository) generateSearchCacheKey(query domain.SearchQuery) string {
	keyData := fmt.Sprintf("search:%q:page:%d:size:%d", query.Query, query.Page, query.Size)

	// Hash para chave mais limpa e consistente
	hash := md5.Sum([]byte(keyData))
	return fmt.Sprintf("freight:{search}:%x", hash)
}

// getFromCache reports a hit only when the value was found and decoded. Cache
// errors are logged and treated as a miss.
func (r *CachedFreightQueryRepository) getFromCache(ctx context.Context, cacheKey string, target interface{}) bool {
	if r.redisClient == nil {
		return false
	}

	cachedJSON, found, err := r.redisClient.GetKey(ctx, cacheKey)
	if err != nil {
		r.logger.Warn("Cache error, falling back to database", "key", cacheKey, "error", err)
		r.observe("error")
		return false
	}

	if !found {
		r.observe("miss")
		return false
	}

	if err := json.Unmarshal([]byte(cachedJSON), target); err != nil {
		r.logger.Warn("Failed to unmarshal cached data", "key", cacheKey, "error", err)
		r.observe("error")
		return false
	}

	r.observe("hit")
	return true
}

// currentVersion reports false when Redis is unavailable; the caller then skips the fill.
func (r *CachedFreightQueryRepository) currentVersion(ctx context.Context, versionKey string) (int64, bool) {
	if r.redisClient == nil {
		return 0, false
	}

	version, err := r.redisClient.GetVersion(ctx, versionKey)
	if err != nil {
		r.logger.Warn("Failed to read cache version, skipping fill", "key", versionKey, "error", err)
		return 0, false
	}

	return version, true
}

func (r *CachedFreightQueryRepository) setInCacheAsync(versionKey string, version int64, cacheKey string, value interface{}, registryKeys []string) {
	dataJSON, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("Failed to marshal cache data", "key", cacheKey, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.fillTimeout)
		defer cancel()

		stored, err := r.redisClient.SetWithRegistryIfVersion(ctx, versionKey, version, cacheKey, string(dataJSON), registryKeys)
		if err != nil {
			r.logger.Warn("Failed to set cache with registry", "key", cacheKey, "error", err)
			return
		}
		if !stored {
			r.logger.Debug("Cache fill discarded after invalidation", "key", cacheKey)
		}
	}()
}

func (r *CachedFreightQueryRepository) observe(result string) {
	if r.observer != nil {
		r.observer.ObserveCacheLookup(result)
	}
}

func freightRegistryKey(id int64) string {
	return fmt.Sprintf("registry:freight:{%d}", id)
}

func freightVersionKey(id int64) string {
	return fmt.Sprintf("version:freight:{%d}", id)
}
