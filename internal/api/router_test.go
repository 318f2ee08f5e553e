package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jamesfarrell.me/video-moments/internal/analyzer"
	"jamesfarrell.me/video-moments/internal/indexing"
	"jamesfarrell.me/video-moments/internal/queue"
	"jamesfarrell.me/video-moments/internal/search"
	"jamesfarrell.me/video-moments/internal/storage/memory"
	"jamesfarrell.me/video-moments/internal/storage/models"
)

const apiKey = "secret"

type describeDog struct{}

func (describeDog) DescribeInterval(ctx context.Context, media analyzer.Media, start, end float64, instructions string) (string, error) {
	return `{"description":"a dog on a beach","entities":["dog","beach"],"sceneType":"outdoor","confidence":0.8}`, nil
}

func (describeDog) ScoreRelevance(ctx context.Context, instructions string) (string, error) {
	return "0.7", nil
}

type syncQueue struct {
	handler queue.Handler
}

func (q *syncQueue) Enqueue(ctx context.Context, task queue.Task) error {
	return q.handler(ctx, task)
}

func (q *syncQueue) Consume(ctx context.Context, handler queue.Handler) error {
	return nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := memory.NewStore()
	d := 65.0
	store.PutVideo(models.Video{ID: "v1", UserID: "u1", VideoURL: "https://cdn.example.com/v1.mp4", Duration: &d})
	store.PutVideo(models.Video{ID: "v2", UserID: "u1", VideoURL: "https://cdn.example.com/v2.mp4"})

	q := &syncQueue{}
	svc := indexing.NewService(store, store, store,
		analyzer.NewSegmentAnalyzer(describeDog{}, 30, time.Second), q)
	q.handler = svc.RunJob

	engine := search.NewEngine(store, search.NewScorer(describeDog{}, 2, time.Second))
	return NewRouter(svc, engine, apiKey)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func authed(user string) map[string]string {
	return map[string]string{"X-API-Key": apiKey, "X-User-ID": user}
}

func TestHealthIsPublic(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	h := newTestRouter(t)
	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"no key", map[string]string{"X-User-ID": "u1"}, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope", "X-User-ID": "u1"}, http.StatusUnauthorized},
		{"no user", map[string]string{"X-API-Key": apiKey}, http.StatusBadRequest},
		{"ok", authed("u1"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/videos/v1/indexed", "", tt.headers)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestIndexingFlow(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/videos/v1/index", "", authed("u1"))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST index = %d %s", rec.Code, rec.Body.String())
	}
	var job models.IndexingJob
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	if job.TotalSegments != 3 {
		t.Errorf("TotalSegments = %d, want 3", job.TotalSegments)
	}

	rec = do(t, h, http.MethodGet, "/jobs/"+job.ID, "", authed("u1"))
	var status models.IndexingJob
	json.NewDecoder(rec.Body).Decode(&status)
	if rec.Code != http.StatusOK || status.Status != models.JobComplete {
		t.Errorf("GET job = %d %+v", rec.Code, status)
	}
	if rec := do(t, h, http.MethodGet, "/jobs/"+job.ID, "", authed("u2")); rec.Code != http.StatusNotFound {
		t.Errorf("GET job as other user = %d, want 404", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/videos/v1/segments", "", authed("u1"))
	var segs []models.TemporalSegment
	json.NewDecoder(rec.Body).Decode(&segs)
	if len(segs) != 3 || segs[2].EndTime != 65 {
		t.Errorf("segments = %+v", segs)
	}

	rec = do(t, h, http.MethodGet, "/videos/v1/indexed", "", authed("u1"))
	if !strings.Contains(rec.Body.String(), `"indexed":true`) {
		t.Errorf("indexed = %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/videos/v1/search", `{"query":"dog","searchType":"action","threshold":0.6}`, authed("u1"))
	var resp models.SearchResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || resp.TotalResults != 3 || resp.Query != "dog" {
		t.Errorf("search = %d %+v", rec.Code, resp)
	}

	rec = do(t, h, http.MethodGet, "/videos/v1/suggestions?q=BEA", "", authed("u1"))
	if !strings.Contains(rec.Body.String(), `"suggestions":["beach"]`) {
		t.Errorf("suggestions = %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/videos/v1/popular", "", authed("u1"))
	if !strings.Contains(rec.Body.String(), `"terms":["dog","beach"]`) {
		t.Errorf("popular = %s", rec.Body.String())
	}

	if rec := do(t, h, http.MethodDelete, "/videos/v1/index", "", authed("u1")); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE index = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/videos/v1/index", "", authed("u1")); rec.Code != http.StatusNotFound {
		t.Errorf("GET index after delete = %d, want 404", rec.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	h := newTestRouter(t)
	tests := []struct {
		name         string
		method, path string
		body         string
		want         int
	}{
		{"unknown video", http.MethodPost, "/videos/missing/index", "", http.StatusNotFound},
		{"no duration", http.MethodPost, "/videos/v2/index", "", http.StatusUnprocessableEntity},
		{"bad search type", http.MethodPost, "/videos/v1/search", `{"query":"dog","searchType":"mood"}`, http.StatusBadRequest},
		{"bad threshold", http.MethodPost, "/videos/v1/search", `{"query":"dog","threshold":2}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/videos/v1/search", `{`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/videos/v1/segments/s1/similar?limit=x", "", http.StatusBadRequest},
		{"unknown segment", http.MethodGet, "/videos/v1/segments/s1/similar", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body, authed("u1"))
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
