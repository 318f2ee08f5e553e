package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"CONFIG_FILE", "DATABASE_ID", "DATABASE_URL", "DATABASE_URL_DEFAULT", "DATABASE_URL_STAGING",
	"SERVICE_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "ANALYZER_MODEL", "EMBEDDING_MODEL",
	"SEGMENT_LENGTH", "ANALYZER_TIMEOUT", "SCORING_CONCURRENCY", "QUEUE", "QUEUE_WORKERS",
	"REDIS_ADDR", "REDIS_QUEUE", "STORE", "HTTP_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "moments.yaml")
	yaml := `
database_url: postgres://file@localhost/moments
openai_api_key: from-file
segment_length: 15
analyzer_timeout: 10s
queue: redis
queue_workers: 8
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("SCORING_CONCURRENCY", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DatabaseURL != "postgres://file@localhost/moments" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.OpenAIAPIKey != "from-env" {
		t.Errorf("OpenAIAPIKey = %q, want env override", cfg.OpenAIAPIKey)
	}
	if cfg.SegmentLength != 15 || cfg.AnalyzerTimeout != 10*time.Second {
		t.Errorf("SegmentLength = %v, AnalyzerTimeout = %v", cfg.SegmentLength, cfg.AnalyzerTimeout)
	}
	if cfg.Queue != QueueRedis || cfg.QueueWorkers != 8 || cfg.ScoringConcurrency != 6 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Store != StorePostgres {
		t.Errorf("defaults lost: HTTPAddr = %q, Store = %q", cfg.HTTPAddr, cfg.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEGMENT_LENGTH", "thirty")
	t.Setenv("ANALYZER_TIMEOUT", "45")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() error = nil")
	}
	for _, want := range []string{"SEGMENT_LENGTH", "ANALYZER_TIMEOUT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestGetDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://plain")
	t.Setenv("DATABASE_URL_STAGING", "postgres://staging")

	tests := []struct {
		id   string
		want string
	}{
		{"", "postgres://plain"},
		{"staging", "postgres://staging"},
		{"STAGING", "postgres://staging"},
		{"prod", "postgres://plain"},
	}
	for _, tt := range tests {
		if got := GetDatabaseURL(tt.id); got != tt.want {
			t.Errorf("GetDatabaseURL(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.DatabaseURL = "postgres://localhost/moments"
		c.OpenAIAPIKey = "sk-test"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"memory store without database", func(c *Config) { c.Store = StoreMemory; c.DatabaseURL = "" }, ""},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"missing key", func(c *Config) { c.OpenAIAPIKey = " " }, "OPENAI_API_KEY"},
		{"unknown queue", func(c *Config) { c.Queue = "kafka" }, `unknown queue "kafka"`},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, `unknown store "sqlite"`},
		{"memory with redis", func(c *Config) { c.Store = StoreMemory; c.Queue = QueueRedis }, "local queue"},
		{"zero segment length", func(c *Config) { c.SegmentLength = 0 }, "SEGMENT_LENGTH"},
		{"zero workers", func(c *Config) { c.QueueWorkers = 0 }, "QUEUE_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
