package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	freighthttp "freightapi/src/adapters/http"
	"freightapi/src/helper/env"
	"freightapi/src/infra/metrics"
	"freightapi/src/infra/postgres"
	"freightapi/src/infra/redis"
	"freightapi/src/repositories"
	"freightapi/src/services/freight"

	"go.uber.org/fx"
)

const (
	storageBackendPostgres = "postgres"
	storageBackendMemory   = "memory"
)

// freightStorage é o backend escolhido por STORAGE_BACKEND.
type freightStorage struct {
	reader repositories.FreightReader
	writer repositories.FreightWriter
}

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting freight API server with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newHTTPMetrics,
			newFreightStorage,
			newRedisClient,
			newCachedFreightQueryRepository,
			newFreightService,
			newServer,
		),

		// Invocations
		fx.Invoke(registerServerHooks),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for app to exit gracefully
	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
}

func newLogger() *slog.Logger {
	logLevel := env.GetString("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newHTTPMetrics() *metrics.HTTPMetrics {
	return metrics.NewHTTPMetrics()
}

func readConnectionConfig(hostVar string) postgres.ConnectionConfig {
	return postgres.ConnectionConfig{
		Host:           env.GetString(hostVar, env.MustGetString("DB_HOST")),
		Port:           env.GetString("DB_PORT", "5432"),
		DBName:         env.MustGetString("DB_NAME"),
		Username:       env.MustGetString("DB_USER"),
		Password:       env.MustGetString("DB_PASSWORD"),
		MaxConnections: env.GetInt("DB_MAX_POOL_CONNECTIONS", 25),
	}
}

// newFreightStorage abre o backend configurado. Com postgres, as migrações podem
// rodar no start (DB_AUTO_MIGRATE=true).
func newFreightStorage(lc fx.Lifecycle, logger *slog.Logger) (*freightStorage, error) {
	backend := env.GetString("STORAGE_BACKEND", storageBackendPostgres)

	switch backend {
	case storageBackendMemory:
		logger.Warn("Using in-memory storage, data will be lost on restart")
		memory := repositories.NewMemoryFreightRepository()
		return &freightStorage{reader: memory, writer: memory}, nil

	case storageBackendPostgres:
		writeConfig := readConnectionConfig("DB_HOST")
		readConfig := readConnectionConfig("DB_READ_HOST")

		if env.GetBool("DB_AUTO_MIGRATE", false) {
			if err := postgres.RunMigrations(logger, writeConfig); err != nil {
				return nil, err
			}
		}

		client, err := postgres.NewReadWriteClient(readConfig, writeConfig)
		if err != nil {
			return nil, err
		}

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				client.Close()
				return nil
			},
		})

		logger.Info("PostgreSQL storage ready", "host", writeConfig.Host, "read_host", readConfig.Host, "db", writeConfig.DBName)

		return &freightStorage{
			reader: repositories.NewFreightQueryRepository(client.GetReadPool()),
			writer: repositories.NewFreightWriteRepository(client.GetWritePool()),
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (expected %q or %q)", backend, storageBackendPostgres, storageBackendMemory)
	}
}

// newRedisClient returns nil when REDIS_HOSTS is empty, which disables the cache.
func newRedisClient(lc fx.Lifecycle, logger *slog.Logger) *redis.RedisClient {
	hosts := env.GetString("REDIS_HOSTS")
	if hosts == "" {
		logger.Info("REDIS_HOSTS not set, freight cache disabled")
		return nil
	}

	poolSize := env.GetInt("REDIS_POOL_SIZE", 10)
	ttl := time.Duration(env.GetInt("REDIS_DEFAULT_TTL_SECONDS", 300)) * time.Second

	client := redis.NewRedisClient(hosts, poolSize, ttl)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Redis fora do ar não impede o start: o cache só cai para o banco.
			if err := client.HealthCheck(ctx); err != nil {
				logger.Warn("Redis health check failed", "hosts", hosts, "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

func newCachedFreightQueryRepository(
	logger *slog.Logger,
	storage *freightStorage,
	redisClient *redis.RedisClient,
	httpMetrics *metrics.HTTPMetrics,
) *repositories.CachedFreightQueryRepository {
	return repositories.NewCachedFreightQueryRepository(logger, storage.reader, redisClient, httpMetrics)
}

func newFreightService(
	logger *slog.Logger,
	storage *freightStorage,
	cachedReader *repositories.CachedFreightQueryRepository,
) *freight.FreightService {
	return freight.NewFreightService(logger, cachedReader, storage.writer, cachedReader).
		WithMaxPageSize(env.GetInt("SEARCH_MAX_PAGE_SIZE", 100))
}

func newServer(
	logger *slog.Logger,
	freightService *freight.FreightService,
	httpMetrics *metrics.HTTPMetrics,
) *freighthttp.Server {
	port := env.GetInt("SERVER_ADDR", 8080)
	allowedOrigins := env.GetStrings("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	return freighthttp.NewServer(logger, port, freightService, httpMetrics, allowedOrigins)
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *slog.Logger, srv *freighthttp.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					logger.Error("Server failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, env.GetDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second))
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "error", err)
				return err
			}
			logger.Info("Server exited gracefully")
			return nil
		},
	})
}
