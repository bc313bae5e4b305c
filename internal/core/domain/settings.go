package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a model gateway provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbedding returns true if the provider exposes an
// embeddings endpoint.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOpenAI || p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VaultSettings locates the markdown vault and its exclusions.
type VaultSettings struct {
	// Root is the vault directory.
	Root string

	// ExcludedFolders are vault-relative folder prefixes to skip.
	ExcludedFolders []string

	// ExcludedPatterns are glob patterns matched against file names.
	ExcludedPatterns []string
}

// IsConfigured returns true if a vault root is set.
func (v VaultSettings) IsConfigured() bool {
	return v.Root != ""
}

// GatewaySettings holds model gateway provider configuration.
type GatewaySettings struct {
	// Provider is the scoring/tagging provider.
	Provider AIProvider

	// Model is the LLM model used for scoring and tagging.
	Model string

	// EmbeddingProvider is the embedding provider. Defaults to
	// Provider when that provider supports embeddings.
	EmbeddingProvider AIProvider

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the gateway provider is set up.
func (g GatewaySettings) IsConfigured() bool {
	if !g.Provider.IsValid() {
		return false
	}
	if g.Provider.RequiresAPIKey() && g.APIKey == "" {
		return false
	}
	return true
}

// EmbedProvider resolves the effective embedding provider.
func (g GatewaySettings) EmbedProvider() AIProvider {
	if g.EmbeddingProvider.IsValid() {
		return g.EmbeddingProvider
	}
	return g.Provider
}

// LinkingSettings tunes candidate generation, batching and
// reconciliation.
type LinkingSettings struct {
	// SimilarityThreshold is the minimum cosine similarity for a pair
	// to become a scoring candidate, in [0, 1].
	SimilarityThreshold float64

	// AIScoreThreshold is the minimum model relevance for a link to
	// be desired, in [0, 10].
	AIScoreThreshold float64

	// MaxLinksPerNote caps each note's outbound auto-managed links.
	MaxLinksPerNote int

	// BatchSize is the number of pairs (or notes) per remote call.
	BatchSize int

	// FreshnessWindow is how long a pair score stays skip-eligible in
	// smart mode.
	FreshnessWindow time.Duration

	// EmbedCharLimit truncates each text before embedding.
	EmbedCharLimit int

	// ScoreCharLimit truncates note bodies in scoring payloads.
	ScoreCharLimit int

	// MinTags and MaxTags bound tag generation per note.
	MinTags int
	MaxTags int
}

// Settings holds all application settings.
type Settings struct {
	Vault   VaultSettings
	Gateway GatewaySettings
	Linking LinkingSettings
}

// DefaultSettings returns settings with sensible defaults.
// The gateway is left unconfigured; users must set a provider before
// linking runs can start.
func DefaultSettings() Settings {
	return Settings{
		Linking: LinkingSettings{
			SimilarityThreshold: 0.7,
			AIScoreThreshold:    6,
			MaxLinksPerNote:     5,
			BatchSize:           10,
			FreshnessWindow:     7 * 24 * time.Hour,
			EmbedCharLimit:      8000,
			ScoreCharLimit:      1500,
			MinTags:             1,
			MaxTags:             5,
		},
	}
}

// CacheStats aggregates cache store contents for reporting.
type CacheStats struct {
	Notes              int
	Embeddings         int
	ScoredPairs        int
	LedgerEntries      int
	UnresolvedFailures int
}
