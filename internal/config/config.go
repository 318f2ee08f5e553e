package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	QueueLocal    = "local"
	QueueRedis    = "redis"
	QueuePostgres = "postgres"

	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds every setting of the service, the indexer and the CLI.
type Config struct {
	DatabaseURL   string `yaml:"database_url"`
	ServiceAPIKey string `yaml:"service_api_key"`

	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	AnalyzerModel  string `yaml:"analyzer_model"`
	EmbeddingModel string `yaml:"embedding_model"`

	SegmentLength      float64       `yaml:"segment_length"`
	AnalyzerTimeout    time.Duration `yaml:"analyzer_timeout"`
	ScoringConcurrency int           `yaml:"scoring_concurrency"`

	Queue        string `yaml:"queue"`
	QueueWorkers int    `yaml:"queue_workers"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisQueue   string `yaml:"redis_queue"`

	Store    string `yaml:"store"`
	HTTPAddr string `yaml:"http_addr"`

	// Videos seeds the memory store; the postgres store ignores it.
	Videos []VideoSeed `yaml:"videos,omitempty"`
}

type VideoSeed struct {
	ID            string  `yaml:"id"`
	UserID        string  `yaml:"user_id"`
	URL           string  `yaml:"url"`
	Duration      float64 `yaml:"duration"`
	TranscriptVTT string  `yaml:"transcript_vtt,omitempty"`
}

// EmbeddingsEnabled reports whether segments get description embeddings.
func (c *Config) EmbeddingsEnabled() bool {
	return c.EmbeddingModel != ""
}

func Default() *Config {
	return &Config{
		SegmentLength:      30,
		AnalyzerTimeout:    45 * time.Second,
		ScoringConcurrency: 4,
		Queue:              QueueLocal,
		QueueWorkers:       2,
		RedisAddr:          "localhost:6379",
		RedisQueue:         "video-moments:indexing",
		Store:              StorePostgres,
		HTTPAddr:           ":8080",
	}
}

// Load reads .env, then the YAML file named by CONFIG_FILE if set, then
// applies environment overrides on top.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if url := GetDatabaseURL(os.Getenv("DATABASE_ID")); url != "" {
		c.DatabaseURL = url
	}
	c.ServiceAPIKey = getEnvOrDefault("SERVICE_API_KEY", c.ServiceAPIKey)
	c.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.AnalyzerModel = getEnvOrDefault("ANALYZER_MODEL", c.AnalyzerModel)
	c.EmbeddingModel = getEnvOrDefault("EMBEDDING_MODEL", c.EmbeddingModel)
	c.Queue = getEnvOrDefault("QUEUE", c.Queue)
	c.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisQueue = getEnvOrDefault("REDIS_QUEUE", c.RedisQueue)
	c.Store = getEnvOrDefault("STORE", c.Store)
	c.HTTPAddr = getEnvOrDefault("HTTP_ADDR", c.HTTPAddr)

	var errs []string
	if v := os.Getenv("SEGMENT_LENGTH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("SEGMENT_LENGTH: %v", err))
		}
		c.SegmentLength = f
	}
	if v := os.Getenv("ANALYZER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("ANALYZER_TIMEOUT: %v", err))
		}
		c.AnalyzerTimeout = d
	}
	if v := os.Getenv("SCORING_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("SCORING_CONCURRENCY: %v", err))
		}
		c.ScoringConcurrency = n
	}
	if v := os.Getenv("QUEUE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("QUEUE_WORKERS: %v", err))
		}
		c.QueueWorkers = n
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) Validate() error {
	var errors []string

	switch c.Store {
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errors = append(errors, "DATABASE_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		errors = append(errors, fmt.Sprintf("unknown store %q", c.Store))
	}

	switch c.Queue {
	case QueueLocal:
	case QueueRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errors = append(errors, "REDIS_ADDR is required for the redis queue")
		}
	case QueuePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errors = append(errors, "DATABASE_URL is required for the postgres queue")
		}
	default:
		errors = append(errors, fmt.Sprintf("unknown queue %q", c.Queue))
	}

	if c.Queue != QueueLocal && c.Store == StoreMemory {
		errors = append(errors, "the memory store only works with the local queue")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		errors = append(errors, "OPENAI_API_KEY is required")
	}
	if c.SegmentLength <= 0 {
		errors = append(errors, "SEGMENT_LENGTH must be positive")
	}
	if c.AnalyzerTimeout <= 0 {
		errors = append(errors, "ANALYZER_TIMEOUT must be positive")
	}
	if c.ScoringConcurrency <= 0 {
		errors = append(errors, "SCORING_CONCURRENCY must be positive")
	}
	if c.QueueWorkers <= 0 {
		errors = append(errors, "QUEUE_WORKERS must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
