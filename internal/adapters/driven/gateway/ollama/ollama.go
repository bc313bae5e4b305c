// Package ollama provides gateway clients backed by a local Ollama
// server. No API key is required.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/relink-cli/internal/adapters/driven/gateway"
)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultModel          = "llama3.2"
	DefaultEmbeddingModel = "nomic-embed-text"
)

// Config holds configuration for Ollama clients.
type Config struct {
	// BaseURL is the Ollama server URL (default: http://localhost:11434).
	BaseURL string

	// Model is the completion model (default: llama3.2).
	Model string

	// EmbeddingModel is the embedding model (default: nomic-embed-text).
	EmbeddingModel string

	// Timeout is the request timeout.
	Timeout time.Duration
}

// Client talks to a local Ollama server. It implements both
// gateway.ChatClient and gateway.EmbedClient.
type Client struct {
	http           *gateway.HTTPClient
	baseURL        string
	model          string
	embeddingModel string
}

var (
	_ gateway.ChatClient  = (*Client)(nil)
	_ gateway.EmbedClient = (*Client)(nil)
)

// chatRequest is the /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the /api/chat response format (non-streaming).
type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// embeddingsRequest is the /api/embeddings request format. Ollama
// embeds one prompt per request.
type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embeddingsResponse is the /api/embeddings response format.
type embeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewClient creates an Ollama gateway client.
func NewClient(cfg Config) *Client {
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
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}
}

// Complete sends one prompt and returns the raw model output.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.http.PostJSON(ctx, c.baseURL+"/api/chat", nil, chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return resp.Message.Content, nil
}

// EmbedTexts generates one embedding per input text. The Ollama
// embeddings endpoint takes a single prompt, so inputs are sent
// sequentially.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		body, err := c.http.PostJSON(ctx, c.baseURL+"/api/embeddings", nil, embeddingsRequest{
			Model:  c.embeddingModel,
			Prompt: text,
		})
		if err != nil {
			return nil, err
		}

		var resp embeddingsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if len(resp.Embedding) == 0 {
			return nil, fmt.Errorf("ollama: empty embedding returned")
		}
		vectors[i] = resp.Embedding
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

// Ping validates the server is reachable via the /api/tags endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.http.Get(ctx, c.baseURL+"/api/tags", nil); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases transport resources.
func (c *Client) Close() error {
	return c.http.Close()
}
