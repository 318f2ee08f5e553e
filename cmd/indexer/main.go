package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jamesfarrell.me/video-moments/internal/app"
	"jamesfarrell.me/video-moments/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if cfg.Queue == config.QueueLocal {
		log.Fatal("QUEUE must be redis or postgres; the local queue is worked by cmd/service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	log.Printf("Consuming indexing tasks from the %s queue with %d workers", cfg.Queue, cfg.QueueWorkers)

	if err := a.Work(ctx); err != nil {
		log.Fatalf("Service error: %v", err)
	}
	log.Println("Indexer stopped")
}
