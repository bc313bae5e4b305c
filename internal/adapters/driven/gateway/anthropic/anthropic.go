// Package anthropic provides a gateway chat client backed by the
// Anthropic Messages API. Anthropic has no embeddings endpoint, so
// this package only implements the chat side of the gateway.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/relink-cli/internal/adapters/driven/gateway"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"

	anthropicVersion = "2023-06-01"
	maxTokens        = 4096
)

// Config holds configuration for the Anthropic client.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the completion model (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the request timeout.
	Timeout time.Duration
}

// Client talks to the Anthropic Messages API.
type Client struct {
	http    *gateway.HTTPClient
	baseURL string
	apiKey  string
	model   string
}

var _ gateway.ChatClient = (*Client)(nil)

// messagesRequest is the /v1/messages request format.
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewClient creates an Anthropic gateway client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = gateway.DefaultChatTimeout
	}

	return &Client{
		http:    gateway.NewHTTPClient(cfg.Timeout),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Complete sends one prompt and returns the raw model output.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.http.PostJSON(ctx, c.baseURL+"/v1/messages", c.headers(), messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: no text content returned")
}

// Model returns the completion model name.
func (c *Client) Model() string {
	return c.model
}

// Ping validates the API key against the /v1/models endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.http.Get(ctx, c.baseURL+"/v1/models", c.headers()); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases transport resources.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
}
