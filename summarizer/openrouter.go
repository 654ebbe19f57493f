package summarizer

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"feeddigest/config"
)

const systemPrompt = `You are an RSS summarizer. You read blog posts and articles
and condense each one into a short natural-language summary a reader can skim
in a direct message. Keep it factual and concise.`

// Client calls an OpenAI-compatible chat completion endpoint
// (OpenRouter by default) to summarize articles.
type Client struct {
	api             *openai.Client
	model           string
	maxArticleChars int
	maxTokens       int
}

// New creates a summarizer client. It fails fast on incomplete
// credentials so a misconfigured run aborts before any feed work.
func New(creds config.OpenRouterCredentials, maxArticleChars, maxTokens int) (*Client, error) {
	if !creds.IsValid() {
		return nil, fmt.Errorf("invalid summarizer credentials: API key and model must be set")
	}

	cfg := openai.DefaultConfig(creds.APIKey)
	if creds.BaseURL != "" {
		cfg.BaseURL = creds.BaseURL
	}

	return &Client{
		api:             openai.NewClientWithConfig(cfg),
		model:           creds.Model,
		maxArticleChars: maxArticleChars,
		maxTokens:       maxTokens,
	}, nil
}

// Name returns the model identifier
func (c *Client) Name() string {
	return c.model
}

// Summarize sends the article to the completion endpoint and returns
// the condensed text. The body is truncated to the configured maximum
// before it leaves the process.
func (c *Client) Summarize(ctx context.Context, title, content string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(title, content, c.maxArticleChars)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(title, content string, maxChars int) string {
	return fmt.Sprintf(
		"Summarize the following blog post:\nTitle: %s\nContent: %s\nMake it concise.",
		title, truncateRunes(content, maxChars),
	)
}

// truncateRunes cuts s to at most max characters on a rune boundary.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
