// clean-snapshots removes option snapshots and history older than a retention window.
// Usage: set POSTGRES_DSN (same as for tracker), then run:
//
//	go run ./cmd/tools/clean-snapshots -older-than 72h
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/config"
	"github.com/Vodeneev/livebet/internal/pkg/storage"
)

func main() {
	var retention time.Duration
	flag.DurationVar(&retention, "older-than", 72*time.Hour, "Delete snapshots recorded before now minus this duration")
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN environment variable is required")
	}
	if retention <= 0 {
		log.Fatal("-older-than must be positive")
	}

	st, err := storage.NewPostgresTrackingStorage(&config.PostgresConfig{DSN: dsn})
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	before := time.Now().Add(-retention)
	if err := st.CleanFinished(ctx, before); err != nil {
		log.Fatalf("Failed to clean snapshots: %v", err)
	}
	log.Printf("Done. Snapshots recorded before %s removed.", before.UTC().Format(time.RFC3339))
}
