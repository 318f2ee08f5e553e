package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["dimensions"]; ok {
			t.Errorf("ada-002 request carries dimensions: %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-ada-002",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL+"/v1", "")
	got, err := c.Embed(context.Background(), "a dog on a beach")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 3 || got[1] != 0.2 {
		t.Errorf("Embed() = %v", got)
	}
}

func TestClientEmbedRequestsColumnDimensions(t *testing.T) {
	var got float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		got, _ = body["dimensions"].(float64)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-large",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test", srv.URL+"/v1", "text-embedding-3-large")
	if _, err := c.Embed(context.Background(), "a dog on a beach"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if got != Dimensions {
		t.Errorf("dimensions = %v, want %d", got, Dimensions)
	}
}
