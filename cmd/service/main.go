package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jamesfarrell.me/video-moments/internal/api"
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
	if cfg.ServiceAPIKey == "" {
		log.Fatal("SERVICE_API_KEY environment variable must be set")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	// The local queue lives in this process, so this process also works it.
	workerDone := make(chan struct{})
	if cfg.Queue == config.QueueLocal {
		go func() {
			defer close(workerDone)
			if err := a.Work(ctx); err != nil {
				log.Printf("Worker stopped: %v", err)
			}
		}()
	} else {
		close(workerDone)
		log.Printf("Indexing tasks go to the %s queue; run cmd/indexer to process them", cfg.Queue)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(a.Indexing, a.Search, cfg.ServiceAPIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on %s...", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	stop()
	<-workerDone
}
