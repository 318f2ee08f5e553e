package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jamesfarrell.me/video-moments/internal/config"
	"jamesfarrell.me/video-moments/internal/storage/models"
)

// fakeOpenAI describes every interval as a dog scene and scores every
// segment 0.9.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		reply := `{"description":"A dog fetches a stick","entities":["dog","stick"],"sceneType":"outdoor","confidence":0.9}`
		if len(req.Messages) > 0 && strings.HasPrefix(req.Messages[0].Content, "Rate the relevance") {
			reply = "0.9"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"},
			},
		})
	}))
}

func memoryConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Store = config.StoreMemory
	cfg.OpenAIAPIKey = "test"
	cfg.OpenAIBaseURL = baseURL
	cfg.AnalyzerTimeout = 5 * time.Second
	cfg.Videos = []config.VideoSeed{
		{ID: "v1", UserID: "u1", URL: "https://cdn.example.com/v1.mp4", Duration: 75},
	}
	return cfg
}

func TestIndexAndSearchInMemory(t *testing.T) {
	srv := fakeOpenAI(t)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, memoryConfig(srv.URL+"/v1"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	if err := a.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Work(ctx)
	}()

	job, err := a.Indexing.StartIndexing(ctx, "v1", "u1")
	if err != nil {
		t.Fatalf("StartIndexing() error = %v", err)
	}
	if job.TotalSegments != 3 {
		t.Errorf("TotalSegments = %d, want 3", job.TotalSegments)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err = a.Indexing.GetIndexingStatus(ctx, job.ID, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if job.Status == models.JobComplete || job.Status == models.JobError {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job still %s after 5s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job.Status != models.JobComplete || job.Progress != 100 {
		t.Fatalf("job = %+v", job)
	}

	resp, err := a.Search.SearchVideo(ctx, "v1", "u1", models.SearchRequest{
		Query:      "dog",
		SearchType: models.SearchSemantic,
	})
	if err != nil {
		t.Fatalf("SearchVideo() error = %v", err)
	}
	if resp.TotalResults != 3 {
		t.Fatalf("TotalResults = %d, want 3", resp.TotalResults)
	}
	for i, m := range resp.Matches {
		if m.SegmentNumber != i+1 || m.RelevanceScore != 0.9 {
			t.Errorf("match %d = %+v", i, m)
		}
	}
	if last := resp.Matches[2]; last.EndTime != 75 {
		t.Errorf("last segment ends at %v, want 75", last.EndTime)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Work() did not return after cancel")
	}
}

func TestSeedVideo(t *testing.T) {
	v := seedVideo(config.VideoSeed{ID: "v1", UserID: "u1", TranscriptVTT: "WEBVTT"})
	if v.HasDuration() {
		t.Error("zero duration seeded as known")
	}
	if v.Transcription == nil || *v.Transcription != "WEBVTT" {
		t.Errorf("Transcription = %v", v.Transcription)
	}
}
