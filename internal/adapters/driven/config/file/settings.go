package file

import (
	"time"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// Configuration keys. The TOML file groups them into [vault],
// [gateway] and [linking] tables.
const (
	keyVaultRoot             = "vault.root"
	keyVaultExcludedFolders  = "vault.excluded_folders"
	keyVaultExcludedPatterns = "vault.excluded_patterns"

	keyGatewayProvider      = "gateway.provider"
	keyGatewayModel         = "gateway.model"
	keyGatewayEmbedProvider = "gateway.embedding_provider"
	keyGatewayEmbedModel    = "gateway.embedding_model"
	keyGatewayBaseURL       = "gateway.base_url"
	keyGatewayAPIKey        = "gateway.api_key"

	keySimilarityThreshold = "linking.similarity_threshold"
	keyAIScoreThreshold    = "linking.ai_score_threshold"
	keyMaxLinksPerNote     = "linking.max_links_per_note"
	keyBatchSize           = "linking.batch_size"
	keyFreshnessDays       = "linking.freshness_days"
	keyEmbedCharLimit      = "linking.embed_char_limit"
	keyScoreCharLimit      = "linking.score_char_limit"
	keyMinTags             = "linking.min_tags"
	keyMaxTags             = "linking.max_tags"
)

// ConfigKeys returns every recognised configuration key, sorted.
func ConfigKeys() []string {
	return []string{
		keyGatewayAPIKey,
		keyGatewayBaseURL,
		keyGatewayEmbedModel,
		keyGatewayEmbedProvider,
		keyGatewayModel,
		keyGatewayProvider,
		keyAIScoreThreshold,
		keyBatchSize,
		keyEmbedCharLimit,
		keyFreshnessDays,
		keyMaxLinksPerNote,
		keyMaxTags,
		keyMinTags,
		keyScoreCharLimit,
		keySimilarityThreshold,
		keyVaultExcludedFolders,
		keyVaultExcludedPatterns,
		keyVaultRoot,
	}
}

// LoadSettings reads domain settings from a config store, filling
// anything unset from DefaultSettings.
func LoadSettings(store driven.ConfigStore) domain.Settings {
	settings := domain.DefaultSettings()

	settings.Vault.Root = store.GetString(keyVaultRoot)
	settings.Vault.ExcludedFolders = store.GetStringSlice(keyVaultExcludedFolders)
	settings.Vault.ExcludedPatterns = store.GetStringSlice(keyVaultExcludedPatterns)

	settings.Gateway.Provider = domain.AIProvider(store.GetString(keyGatewayProvider))
	settings.Gateway.Model = store.GetString(keyGatewayModel)
	settings.Gateway.EmbeddingProvider = domain.AIProvider(store.GetString(keyGatewayEmbedProvider))
	settings.Gateway.EmbeddingModel = store.GetString(keyGatewayEmbedModel)
	settings.Gateway.BaseURL = store.GetString(keyGatewayBaseURL)
	settings.Gateway.APIKey = store.GetString(keyGatewayAPIKey)

	linking := &settings.Linking
	if v := store.GetFloat(keySimilarityThreshold); v > 0 {
		linking.SimilarityThreshold = v
	}
	if v := store.GetFloat(keyAIScoreThreshold); v > 0 {
		linking.AIScoreThreshold = v
	}
	if v := store.GetInt(keyMaxLinksPerNote); v > 0 {
		linking.MaxLinksPerNote = v
	}
	if v := store.GetInt(keyBatchSize); v > 0 {
		linking.BatchSize = v
	}
	if v := store.GetInt(keyFreshnessDays); v > 0 {
		linking.FreshnessWindow = time.Duration(v) * 24 * time.Hour
	}
	if v := store.GetInt(keyEmbedCharLimit); v > 0 {
		linking.EmbedCharLimit = v
	}
	if v := store.GetInt(keyScoreCharLimit); v > 0 {
		linking.ScoreCharLimit = v
	}
	if v := store.GetInt(keyMinTags); v > 0 {
		linking.MinTags = v
	}
	if v := store.GetInt(keyMaxTags); v > 0 {
		linking.MaxTags = v
	}

	return settings
}

// SaveSettings writes domain settings into a config store. Zero
// linking values are written as-is; LoadSettings restores defaults
// for them.
func SaveSettings(store driven.ConfigStore, settings domain.Settings) error {
	values := map[string]any{
		keyVaultRoot:             settings.Vault.Root,
		keyVaultExcludedFolders:  settings.Vault.ExcludedFolders,
		keyVaultExcludedPatterns: settings.Vault.ExcludedPatterns,

		keyGatewayProvider:      settings.Gateway.Provider.String(),
		keyGatewayModel:         settings.Gateway.Model,
		keyGatewayEmbedProvider: settings.Gateway.EmbeddingProvider.String(),
		keyGatewayEmbedModel:    settings.Gateway.EmbeddingModel,
		keyGatewayBaseURL:       settings.Gateway.BaseURL,
		keyGatewayAPIKey:        settings.Gateway.APIKey,

		keySimilarityThreshold: settings.Linking.SimilarityThreshold,
		keyAIScoreThreshold:    settings.Linking.AIScoreThreshold,
		keyMaxLinksPerNote:     settings.Linking.MaxLinksPerNote,
		keyBatchSize:           settings.Linking.BatchSize,
		keyFreshnessDays:       int(settings.Linking.FreshnessWindow / (24 * time.Hour)),
		keyEmbedCharLimit:      settings.Linking.EmbedCharLimit,
		keyScoreCharLimit:      settings.Linking.ScoreCharLimit,
		keyMinTags:             settings.Linking.MinTags,
		keyMaxTags:             settings.Linking.MaxTags,
	}

	for key, value := range values {
		if err := store.Set(key, value); err != nil {
			return err
		}
	}
	return store.Save()
}
