package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned when no API credential was provided.
var ErrNotConfigured = errors.New("ai: API key not configured")

// Client wraps an OpenAI-compatible chat-completion API. The zero credential
// case is modeled explicitly so callers can answer with a config error
// instead of a doomed network call.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new model client. Returns an unconfigured client (Configured()
// == false) when apiKey is empty.
func New(baseURL, apiKey, modelName string) *Client {
	if apiKey == "" {
		return &Client{model: modelName}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: modelName,
	}
}

// Configured reports whether a credential was supplied.
func (c *Client) Configured() bool {
	return c.api != nil
}

// Complete sends a single-turn prompt and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("model API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// StripCodeFences removes Markdown code-fence markers the model may wrap
// around JSON output, mirroring the ```json / ``` cleanup the prompt asks
// it not to need.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
