// Package openai provides gateway clients backed by the OpenAI API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/relink-cli/internal/adapters/driven/gateway"
)

// Default configuration values.
const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Config holds configuration for OpenAI clients.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the completion model (default: gpt-4o-mini).
	Model string

	// EmbeddingModel is the embedding model
	// (default: text-embedding-3-small).
	EmbeddingModel string

	// Timeout is the request timeout.
	Timeout time.Duration
}

// Client talks to the OpenAI chat completions and embeddings
// endpoints. It implements both gateway.ChatClient and
// gateway.EmbedClient.
type Client struct {
	http           *gateway.HTTPClient
	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
}

var (
	_ gateway.ChatClient  = (*Client)(nil)
	_ gateway.EmbedClient = (*Client)(nil)
)

// chatRequest is the /chat/completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the /chat/completions response format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// embeddingsRequest is the /embeddings request format.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingsResponse is the /embeddings response format.
type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewClient creates an OpenAI gateway client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = gateway.DefaultChatTimeout
	}

	return &Client{
		http:           gateway.NewHTTPClient(cfg.Timeout),
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}, nil
}

// Complete sends one prompt and returns the raw model output.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.http.PostJSON(ctx, c.baseURL+"/chat/completions", c.headers(), chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// EmbedTexts generates one embedding per input text, in input order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := c.http.PostJSON(ctx, c.baseURL+"/embeddings", c.headers(), embeddingsRequest{
		Model: c.embeddingModel,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}

	var resp embeddingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Model returns the completion model name.
func (c *Client) Model() string {
	return c.model
}

// EmbedModel returns the embedding model name.
func (c *Client) EmbedModel() string {
	return c.embeddingModel
}

// Ping validates the API key against the /models endpoint without
// running inference.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.http.Get(ctx, c.baseURL+"/models", c.headers()); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases transport resources.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}
