//go:build datagen_postgres
// +build datagen_postgres

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"freightapi/src/helper/env"
	"freightapi/src/infra/postgres"

	"github.com/go-faker/faker/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// seedFreight é uma linha pronta para o COPY.
type seedFreight struct {
	Status     *string
	Attributes string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// fakeShipment alimenta o faker; vira o JSON de attributes.
type fakeShipment struct {
	Carrier     string `faker:"name" json:"carrier"`
	TrackingID  string `faker:"uuid_hyphenated" json:"tracking_id"`
	Cargo       string `faker:"word" json:"cargo"`
	WeightKg    int    `faker:"boundary_start=1, boundary_end=30000" json:"weight_kg"`
	Volumes     int    `faker:"boundary_start=1, boundary_end=40" json:"volumes"`
	Contact     string `faker:"email" json:"contact"`
	Origin      string `faker:"-" json:"origin"`
	Destination string `faker:"-" json:"destination"`
	Fragile     bool   `json:"fragile"`
}

var (
	freightStatuses = []string{"pending", "awaiting pickup", "In Transit", "delivered", "cancelled", "returned"}
	cities          = []string{"Curitiba", "São Paulo", "Recife", "Porto Alegre", "Manaus", "Belo Horizonte", "Salvador"}
)

func newSQLClient() (*pgxpool.Pool, error) {
	return postgres.NewPostgresClient(postgres.ConnectionConfig{
		Host:           env.MustGetString("DB_HOST"),
		Port:           env.GetString("DB_PORT", "5432"),
		DBName:         env.MustGetString("DB_NAME"),
		Username:       env.MustGetString("DB_USER"),
		Password:       env.MustGetString("DB_PASSWORD"),
		MaxConnections: 32,
	})
}

func main() {
	numFreights := flag.Int("freights", 100000, "Número de freights a gerar. Use -1 para infinito.")
	bulkSize := flag.Int("bulk-size", 1000, "Linhas por COPY")
	numConsumers := flag.Int("consumers", 8, "Workers fazendo COPY em paralelo")
	nullPerc := flag.Float64("null-perc", 5.0, "Percentual de freights sem status/attributes")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := newSQLClient()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	dataChan := make(chan seedFreight, (*bulkSize)*(*numConsumers)*2)

	var wg sync.WaitGroup
	var totalProcessed, totalErrors int64
	startTime := time.Now()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				processed := atomic.LoadInt64(&totalProcessed)
				elapsed := time.Since(startTime)
				fmt.Printf("📊 Processed: %d | Errors: %d | Rate: %.1f/s | Elapsed: %v\n",
					processed, atomic.LoadInt64(&totalErrors), float64(processed)/elapsed.Seconds(), elapsed.Round(time.Second))
			}
		}
	}()

	for i := 0; i < *numConsumers; i++ {
		wg.Add(1)
		go copyConsumer(ctx, &wg, db, dataChan, *bulkSize, i+1, &totalProcessed, &totalErrors)
	}

	wg.Add(1)
	go producer(ctx, &wg, dataChan, *numFreights, *nullPerc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Shutdown signal received, stopping...")
		cancel()
	}()

	wg.Wait()

	elapsed := time.Since(startTime)
	processed := atomic.LoadInt64(&totalProcessed)

	fmt.Printf("\n🏁 Seeding finished!\n")
	fmt.Printf("📊 Total processed: %d\n", processed)
	fmt.Printf("❌ Total errors: %d\n", atomic.LoadInt64(&totalErrors))
	fmt.Printf("⏱️  Total time: %v\n", elapsed.Round(time.Second))
	fmt.Printf("🚀 Average rate: %.1f records/s\n", float64(processed)/elapsed.Seconds())
}

func producer(ctx context.Context, wg *sync.WaitGroup, dataChan chan<- seedFreight, numFreights int, nullPerc float64) {
	defer wg.Done()
	defer close(dataChan)

	isInfinite := numFreights == -1
	for count := 0; isInfinite || count < numFreights; count++ {
		freight, err := generateFakeFreight(nullPerc)
		if err != nil {
			log.Printf("❌ Failed to generate freight: %v", err)
			continue
		}

		select {
		case dataChan <- freight:
		case <-ctx.Done():
			fmt.Println("Producer stopping.")
			return
		}
	}
}

func generateFakeFreight(nullPerc float64) (seedFreight, error) {
	// Datas espalhadas nos últimos 180 dias; updated_at sempre >= created_at.
	createdAt := time.Now().UTC().Add(-time.Duration(rand.Int63n(int64(180 * 24 * time.Hour))))
	updatedAt := createdAt.Add(time.Duration(rand.Int63n(int64(72 * time.Hour))))

	freight := seedFreight{CreatedAt: createdAt, UpdatedAt: updatedAt}

	if rand.Float64()*100 >= nullPerc {
		status := freightStatuses[rand.Intn(len(freightStatuses))]
		freight.Status = &status
	}

	if rand.Float64()*100 >= nullPerc {
		var shipment fakeShipment
		if err := faker.FakeData(&shipment); err != nil {
			return seedFreight{}, fmt.Errorf("faker failed: %w", err)
		}
		shipment.Origin = cities[rand.Intn(len(cities))]
		shipment.Destination = cities[rand.Intn(len(cities))]

		attributes, err := json.Marshal(shipment)
		if err != nil {
			return seedFreight{}, err
		}
		freight.Attributes = string(attributes)
	}

	return freight, nil
}

func copyConsumer(ctx context.Context, wg *sync.WaitGroup, db *pgxpool.Pool, dataChan <-chan seedFreight, bulkSize, consumerID int, totalProcessed, totalErrors *int64) {
	defer wg.Done()
	log.Printf("🚀 Consumer %d started", consumerID)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	batch := make([]seedFreight, 0, bulkSize)

	flush := func(reason string) {
		if len(batch) == 0 {
			return
		}
		if err := copyFreights(ctx, db, batch); err != nil {
			log.Printf("❌ Consumer %d: ERROR on %s: %v", consumerID, reason, err)
			atomic.AddInt64(totalErrors, 1)
		} else {
			atomic.AddInt64(totalProcessed, int64(len(batch)))
		}
		batch = make([]seedFreight, 0, bulkSize)
	}

	for {
		select {
		case freight, ok := <-dataChan:
			if !ok {
				flush("final flush")
				log.Printf("✅ Consumer %d stopping.", consumerID)
				return
			}

			batch = append(batch, freight)
			if len(batch) >= bulkSize {
				flush("bulk copy")
			}

		case <-ticker.C:
			flush("ticker flush")

		case <-ctx.Done():
			log.Printf("🛑 Consumer %d received stop signal.", consumerID)
			return
		}
	}
}

func copyFreights(ctx context.Context, db *pgxpool.Pool, batch []seedFreight) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	rows := make([][]any, 0, len(batch))
	for _, freight := range batch {
		var attributes any
		if freight.Attributes != "" {
			attributes = freight.Attributes
		}
		rows = append(rows, []any{freight.Status, attributes, freight.CreatedAt, freight.UpdatedAt})
	}

	_, err := db.CopyFrom(ctx,
		pgx.Identifier{"freight"},
		[]string{"status", "attributes", "created_at", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy freights: %w", err)
	}

	return nil
}
