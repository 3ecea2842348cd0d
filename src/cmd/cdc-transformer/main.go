package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freightapi/src/adapters/kafka/consumers"
	"freightapi/src/domain"
	"freightapi/src/helper/env"
	"freightapi/src/infra/debezium"
	"freightapi/src/infra/kafka"
	"freightapi/src/infra/redis"
	"freightapi/src/repositories"
	"freightapi/src/services/events"

	"go.uber.org/fx"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting CDC Transformer with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newKafkaClient,
			newCDCClient,
			newCDCTransformer,
			newDomainEventPublisher,
			newCacheInvalidator,
			newCDCConsumer,
		),

		// Invocations
		fx.Invoke(startConsumer),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start CDC transformer application: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down CDC transformer...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("CDC transformer shutdown complete")
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

func newKafkaClient(logger *slog.Logger) (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")
	groupID := env.MustGetString("KAFKA_CDC_CONSUMER_GROUP_ID")
	batchSize := env.GetInt("KAFKA_BATCH_SIZE", 100)

	return kafka.NewKafkaClient(logger, brokers, groupID, batchSize)
}

func newCDCClient(logger *slog.Logger, kafkaClient *kafka.KafkaClient) *debezium.CDCClient {
	topic := env.MustGetString("KAFKA_CDC_TOPIC")
	serializer := &debezium.CDCSerializer{
		IncludeTables: env.GetStrings("KAFKA_CDC_TABLES", domain.TableFreight),
		SkipSnapshots: env.GetBool("KAFKA_CDC_SKIP_SNAPSHOTS", false),
	}

	return debezium.NewCDCClient(logger, topic, kafkaClient, serializer)
}

func newCDCTransformer(logger *slog.Logger) *events.CDCTransformer {
	return events.NewCDCTransformer(logger)
}

func newDomainEventPublisher(
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
) *events.DomainEventPublisher {
	topic := env.MustGetString("KAFKA_DOMAIN_EVENTS_TOPIC")
	return events.NewDomainEventPublisher(logger, kafkaClient, topic)
}

// newCacheInvalidator returns nil when REDIS_HOSTS is empty; the consumer then only
// publishes events.
func newCacheInvalidator(lc fx.Lifecycle, logger *slog.Logger) repositories.CacheInvalidator {
	hosts := env.GetString("REDIS_HOSTS")
	if hosts == "" {
		return nil
	}

	poolSize := env.GetInt("REDIS_POOL_SIZE", 10)
	ttl := time.Duration(env.GetInt("REDIS_DEFAULT_TTL_SECONDS", 300)) * time.Second
	client := redis.NewRedisClient(hosts, poolSize, ttl)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	// Só a invalidação é usada aqui, então não há reader por trás do cache.
	return repositories.NewCachedFreightQueryRepository(logger, nil, client, nil)
}

func newCDCConsumer(
	logger *slog.Logger,
	cdcClient *debezium.CDCClient,
	transformer *events.CDCTransformer,
	eventPublisher *events.DomainEventPublisher,
	cache repositories.CacheInvalidator,
) *consumers.CDCConsumer {
	return consumers.NewCDCConsumer(logger, cdcClient, transformer, eventPublisher, cache)
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	cdcConsumer *consumers.CDCConsumer,
) {
	consumeCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting CDC transformer")

			// O ctx do OnStart expira quando o start termina, por isso o consumo usa o seu próprio.
			go func() {
				if err := cdcConsumer.Start(consumeCtx); err != nil {
					logger.Error("CDC consumer failed", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down CDC consumer...")
			cancel()
			if err := cdcConsumer.Close(); err != nil {
				logger.Error("Failed to close CDC consumer", "error", err)
				return err
			}
			logger.Info("CDC consumer shut down gracefully")
			return nil
		},
	})
}
