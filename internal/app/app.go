// Package app assembles stores, queue and analyzers from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"jamesfarrell.me/video-moments/internal/analyzer"
	"jamesfarrell.me/video-moments/internal/config"
	"jamesfarrell.me/video-moments/internal/embeddings"
	"jamesfarrell.me/video-moments/internal/indexing"
	"jamesfarrell.me/video-moments/internal/queue"
	"jamesfarrell.me/video-moments/internal/search"
	"jamesfarrell.me/video-moments/internal/storage/db"
	"jamesfarrell.me/video-moments/internal/storage/memory"
	"jamesfarrell.me/video-moments/internal/storage/models"
	"jamesfarrell.me/video-moments/internal/storage/postgres"
)

const localQueueBuffer = 256

type segmentStore interface {
	indexing.SegmentStore
	search.SegmentStore
}

type App struct {
	Config   *config.Config
	DB       *sql.DB
	Queue    queue.Queue
	Indexing *indexing.Service
	Search   *search.Engine

	closers []func() error
}

// New wires the application. The caller must Close it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	var (
		videos   indexing.VideoStore
		jobs     indexing.JobStore
		segments segmentStore
	)
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.NewStore()
		for _, v := range cfg.Videos {
			store.PutVideo(seedVideo(v))
		}
		log.Printf("[app] using memory store with %d videos", len(cfg.Videos))
		videos, jobs, segments = store, store, store
	default:
		if err := a.openDB(); err != nil {
			return nil, err
		}
		videos = postgres.NewVideoRepository(a.DB)
		jobs = postgres.NewJobRepository(a.DB)
		segments = postgres.NewSegmentRepository(a.DB)
	}

	q, err := a.newQueue(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Queue = q

	content := analyzer.NewOpenAIAnalyzer(analyzer.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.AnalyzerModel,
	})

	// A running job updates its row after every segment, each bounded by the
	// analyzer timeout.
	opts := []indexing.Option{indexing.WithJobLease(2 * cfg.AnalyzerTimeout)}
	if cfg.EmbeddingsEnabled() {
		opts = append(opts, indexing.WithEmbedder(
			embeddings.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)))
	}

	a.Indexing = indexing.NewService(videos, jobs, segments,
		analyzer.NewSegmentAnalyzer(content, cfg.SegmentLength, cfg.AnalyzerTimeout),
		q, opts...)
	a.Search = search.NewEngine(segments,
		search.NewScorer(content, cfg.ScoringConcurrency, cfg.AnalyzerTimeout))
	return a, nil
}

func (a *App) openDB() error {
	if a.DB != nil {
		return nil
	}
	database, err := db.NewConnection(db.Config{URL: a.Config.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = database
	a.closers = append(a.closers, database.Close)
	return nil
}

func (a *App) newQueue(ctx context.Context) (queue.Queue, error) {
	cfg := a.Config
	switch cfg.Queue {
	case config.QueueRedis:
		q, err := queue.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisQueue, cfg.QueueWorkers)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, q.Close)
		return q, nil
	case config.QueuePostgres:
		if err := a.openDB(); err != nil {
			return nil, err
		}
		return queue.NewPostgres(a.DB, cfg.DatabaseURL, queue.DefaultChannel, cfg.QueueWorkers), nil
	default:
		return queue.NewLocal(localQueueBuffer, cfg.QueueWorkers), nil
	}
}

// Migrate applies the schema. It is a no-op for the memory store.
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return db.Migrate(ctx, a.DB)
}

// Work consumes indexing tasks until ctx is done.
func (a *App) Work(ctx context.Context) error {
	return a.Queue.Consume(ctx, a.Indexing.RunJob)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[app] close error: %v", err)
		}
	}
	a.closers = nil
}

func seedVideo(v config.VideoSeed) models.Video {
	video := models.Video{
		ID:       v.ID,
		UserID:   v.UserID,
		VideoURL: v.URL,
		Status:   "ready",
	}
	if v.Duration > 0 {
		d := v.Duration
		video.Duration = &d
	}
	if v.TranscriptVTT != "" {
		t := v.TranscriptVTT
		video.Transcription = &t
	}
	return video
}
