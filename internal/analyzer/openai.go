package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultChatModel = openai.GPT4oMini

// OpenAIConfig configures the chat-completion backed analyzer.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIAnalyzer implements ContentAnalyzer on top of the chat completions API.
// Media is passed by reference: the prompt carries the media URL and the
// transcript excerpt for the interval.
type OpenAIAnalyzer struct {
	cli   *openai.Client
	model string
}

func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAIAnalyzer{
		cli:   openai.NewClientWithConfig(clientConfig),
		model: model,
	}
}

func (a *OpenAIAnalyzer) DescribeInterval(ctx context.Context, media Media, start, end float64, instructions string) (string, error) {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n")
	if media.URL != "" {
		fmt.Fprintf(&b, "Video: %s\n", media.URL)
	}
	if transcript := media.Transcript(start, end); transcript != "" {
		fmt.Fprintf(&b, "Transcript for %.1fs-%.1fs:\n%s\n", start, end, transcript)
	}

	return a.complete(ctx, b.String(), 600)
}

func (a *OpenAIAnalyzer) ScoreRelevance(ctx context.Context, instructions string) (string, error) {
	return a.complete(ctx, instructions, 10)
}

func (a *OpenAIAnalyzer) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	}

	resp, err := a.cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
