package driven

import (
	"context"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
)

// ModelGateway is the single boundary to remote model providers.
// Vendor wire formats are normalised behind this interface; the
// engine never depends on a concrete vendor type.
//
// Implementations classify failures into the domain.RemoteError
// taxonomy and retry transient failures at the transport layer.
//
// Implementations may include:
//   - OpenAI (chat completions + embeddings)
//   - Anthropic (messages; no embeddings endpoint)
//   - Ollama (local models)
type ModelGateway interface {
	// Embed generates embeddings for the given texts. Inputs are
	// truncated to the configured character limit before sending.
	// Returns domain.ErrEmbeddingUnsupported when the provider has no
	// embeddings endpoint.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ScorePairs asks the model to rate each candidate pair's
	// relevance from 0 to 10. The result length is expected to equal
	// the input length; callers must tolerate a mismatch.
	ScorePairs(ctx context.Context, pairs []ScorePair, prompt string) ([]PairVerdict, error)

	// SuggestTags asks the model for minTags to maxTags tags per note.
	SuggestTags(ctx context.Context, notes []TagRequest, prompt string, minTags, maxTags int) ([]TagSuggestion, error)

	// ModelName returns the scoring/tagging model name.
	ModelName() string

	// EmbeddingModelName returns the embedding model name.
	EmbeddingModelName() string

	// Ping validates connectivity with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ScorePair is one candidate pair in a scoring request payload.
type ScorePair struct {
	ID1        string
	ID2        string
	Title1     string
	Title2     string
	Content1   string
	Content2   string
	Similarity float64
}

// Key returns the canonical pair key for the request item.
func (p ScorePair) Key() domain.PairKey {
	return domain.NewPairKey(p.ID1, p.ID2)
}

// PairVerdict is the model's relevance rating for one pair.
type PairVerdict struct {
	ID1       string
	ID2       string
	Score     float64
	Reasoning string
}

// TagRequest is one note in a tag generation payload.
type TagRequest struct {
	ID           string
	Title        string
	Content      string
	ExistingTags []string
}

// TagSuggestion is the model's tag proposal for one note.
type TagSuggestion struct {
	ID        string
	Tags      []string
	Reasoning string
}
