package embeddings

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Dimensions is the vector size of the segment embedding column.
const Dimensions = 1536

// Embedder converts text to an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Client struct {
	cli   *openai.Client
	model openai.EmbeddingModel
}

// NewClient returns an OpenAI embeddings client. An empty model selects ada-002,
// whose 1536 dimensions match the segment embedding column.
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	m := openai.AdaEmbeddingV2
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	return &Client{cli: openai.NewClientWithConfig(cfg), model: m}
}

// Embed converts text to an embedding vector using OpenAI's API
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Model: c.model,
		Input: []string{text},
	}
	// ada-002 is fixed at 1536 and rejects the dimensions parameter.
	if c.model != openai.AdaEmbeddingV2 {
		req.Dimensions = Dimensions
	}
	resp, err := c.cli.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI embedding creation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("OpenAI returned no embeddings")
	}

	return resp.Data[0].Embedding, nil
}
