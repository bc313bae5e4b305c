package gateway

import (
	"context"
	"fmt"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// ChatClient is the vendor-side contract for completion requests.
// Implementations send one prompt and return the raw model output.
type ChatClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
	Ping(ctx context.Context) error
	Close() error
}

// EmbedClient is the vendor-side contract for embedding requests.
type EmbedClient interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedModel() string
	Ping(ctx context.Context) error
	Close() error
}

// Gateway implements the ModelGateway port by composing a chat client
// with an optional embed client. The two may be different vendors;
// Anthropic has no embeddings endpoint, so pairing it with Ollama or
// OpenAI embeddings is a supported configuration.
type Gateway struct {
	chat  ChatClient
	embed EmbedClient
}

var _ driven.ModelGateway = (*Gateway)(nil)

// New composes a gateway. embed may be nil.
func New(chat ChatClient, embed EmbedClient) *Gateway {
	return &Gateway{chat: chat, embed: embed}
}

// Embed generates embeddings for the given texts.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if g.embed == nil {
		return nil, domain.ErrEmbeddingUnsupported
	}
	return g.embed.EmbedTexts(ctx, texts)
}

// ScorePairs rates each candidate pair's relevance from 0 to 10.
func (g *Gateway) ScorePairs(ctx context.Context, pairs []driven.ScorePair, prompt string) ([]driven.PairVerdict, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	raw, err := g.chat.Complete(ctx, BuildScorePrompt(pairs, prompt))
	if err != nil {
		return nil, fmt.Errorf("score pairs: %w", err)
	}
	return ParsePairVerdicts(raw, pairs)
}

// SuggestTags proposes tags for each note.
func (g *Gateway) SuggestTags(
	ctx context.Context,
	notes []driven.TagRequest,
	prompt string,
	minTags, maxTags int,
) ([]driven.TagSuggestion, error) {
	if len(notes) == 0 {
		return nil, nil
	}

	raw, err := g.chat.Complete(ctx, BuildTagPrompt(notes, prompt, minTags, maxTags))
	if err != nil {
		return nil, fmt.Errorf("suggest tags: %w", err)
	}
	return ParseTagSuggestions(raw, notes)
}

// ModelName returns the scoring/tagging model name.
func (g *Gateway) ModelName() string {
	return g.chat.Model()
}

// EmbeddingModelName returns the embedding model name, or "" when
// embeddings are unavailable.
func (g *Gateway) EmbeddingModelName() string {
	if g.embed == nil {
		return ""
	}
	return g.embed.EmbedModel()
}

// Ping validates connectivity of both underlying clients.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.chat.Ping(ctx); err != nil {
		return fmt.Errorf("model provider: %w", err)
	}
	if g.embed != nil {
		if err := g.embed.Ping(ctx); err != nil {
			return fmt.Errorf("embedding provider: %w", err)
		}
	}
	return nil
}

// Close releases both underlying clients.
func (g *Gateway) Close() error {
	err := g.chat.Close()
	if g.embed != nil {
		if cerr := g.embed.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
