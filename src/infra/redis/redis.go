package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Versões vivem mais que os dados para que uma invalidação nunca "volte" ao valor antigo.
const versionTTL = 24 * time.Hour

type RedisClient struct {
	client            redis.UniversalClient
	defaultTTLSeconds time.Duration
	prefix            string
}

// NewRedisClient aceita um único host ou uma lista separada por vírgula (cluster).
func NewRedisClient(addrs string, poolSize int, defaultTTLSeconds time.Duration) *RedisClient {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: strings.Split(addrs, ","),

		PoolSize:     poolSize,
		MinIdleConns: 2,

		MaxRedirects: 3,

		// Timeouts otimizados para cache
		DialTimeout:  5 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	return &RedisClient{
		client:            client,
		defaultTTLSeconds: defaultTTLSeconds,
	}
}

// WithPrefix returns a client that namespaces every key, used to isolate test runs.
func (rc *RedisClient) WithPrefix(prefix string) *RedisClient {
	return &RedisClient{
		client:            rc.client,
		defaultTTLSeconds: rc.defaultTTLSeconds,
		prefix:            prefix,
	}
}

func (rc *RedisClient) key(key string) string {
	return rc.prefix + key
}

func (rc *RedisClient) SetWithRegistry(ctx context.Context, cacheKey string, cacheValue string, registryKeys []string) error {
	pipe := rc.client.Pipeline()
	rc.queueSetWithRegistry(ctx, pipe, cacheKey, cacheValue, registryKeys)

	_, err := pipe.Exec(ctx)
	return err
}

// SetWithRegistryIfVersion grava como SetWithRegistry dentro de um WATCH em versionKey e
// só se a versão ainda for expectedVersion. Retorna false quando uma invalidação passou
// na frente. Em cluster todas as chaves precisam cair no mesmo slot (hash tag).
func (rc *RedisClient) SetWithRegistryIfVersion(
	ctx context.Context,
	versionKey string,
	expectedVersion int64,
	cacheKey string,
	cacheValue string,
	registryKeys []string,
) (bool, error) {
	stored := false

	err := rc.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, rc.key(versionKey))
		if err != nil {
			return err
		}
		if current != expectedVersion {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			rc.queueSetWithRegistry(ctx, pipe, cacheKey, cacheValue, registryKeys)
			return nil
		})
		if err != nil {
			return err
		}

		stored = true
		return nil
	}, rc.key(versionKey))

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return stored, nil
}

func (rc *RedisClient) queueSetWithRegistry(ctx context.Context, pipe redis.Pipeliner, cacheKey string, cacheValue string, registryKeys []string) {
	fields := map[string]interface{}{
		"data":      cacheValue,
		"cached_at": time.Now().Unix(),
	}
	pipe.HSet(ctx, rc.key(cacheKey), fields)
	pipe.Expire(ctx, rc.key(cacheKey), rc.defaultTTLSeconds)

	// O registry aponta de volta para a chave do cache e é o que permite invalidar por freight.
	for _, registryKey := range registryKeys {
		pipe.SAdd(ctx, rc.key(registryKey), cacheKey)
		pipe.Expire(ctx, rc.key(registryKey), rc.defaultTTLSeconds)
	}
}

// GetVersion returns the current value of a version counter, 0 when it does not exist.
func (rc *RedisClient) GetVersion(ctx context.Context, versionKey string) (int64, error) {
	return readVersion(ctx, rc.client, rc.key(versionKey))
}

// BumpVersions increments every version counter so in-flight fills are discarded.
func (rc *RedisClient) BumpVersions(ctx context.Context, versionKeys []string) error {
	if len(versionKeys) == 0 {
		return nil
	}

	pipe := rc.client.Pipeline()
	for _, versionKey := range versionKeys {
		pipe.Incr(ctx, rc.key(versionKey))
		pipe.Expire(ctx, rc.key(versionKey), versionTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, cmd stringGetter, key string) (int64, error) {
	version, err := cmd.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return version, err
}

func (rc *RedisClient) GetKey(ctx context.Context, key string) (string, bool, error) {
	result := rc.client.HGet(ctx, rc.key(key), "data")

	// Cache miss
	if result.Err() == redis.Nil {
		return "", false, nil
	}
	if result.Err() != nil {
		return "", false, result.Err()
	}

	return result.Val(), true, nil
}

// GetMultipleSetMembers reads several registry sets in one round trip.
func (rc *RedisClient) GetMultipleSetMembers(ctx context.Context, keys []string) (map[string][]string, error) {
	pipe := rc.client.Pipeline()

	commands := make(map[string]*redis.StringSliceCmd, len(keys))
	for _, key := range keys {
		commands[key] = pipe.SMembers(ctx, rc.key(key))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	results := make(map[string][]string, len(keys))
	for key, cmd := range commands {
		members, err := cmd.Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to read registry %s: %w", key, err)
		}
		results[key] = members
	}

	return results, nil
}

// Invalidação em cluster requer cuidado especial: as chaves podem estar em slots
// diferentes, então cada DEL vai separado.
func (rc *RedisClient) InvalidateKeys(ctx context.Context, keys []string) error {
	var errors []string

	for _, key := range keys {
		if err := rc.client.Del(ctx, rc.key(key)).Err(); err != nil {
			errors = append(errors, fmt.Sprintf("key %s: %v", key, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalidation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// FlushByPrefix removes every key under the client prefix. No-op without a prefix.
func (rc *RedisClient) FlushByPrefix(ctx context.Context) error {
	if rc.prefix == "" {
		return nil
	}

	iter := rc.client.Scan(ctx, 0, rc.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := rc.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}

	return iter.Err()
}

// Health check para o cluster
func (rc *RedisClient) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisClient) Close() error {
	return rc.client.Close()
}
