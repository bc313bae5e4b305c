package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
)

func TestLoadSettings_DefaultsWhenEmpty(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	settings := LoadSettings(store)

	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Linking, settings.Linking)
	assert.Empty(t, settings.Vault.Root)
	assert.False(t, settings.Gateway.IsConfigured())
}

func TestSaveAndLoadSettings_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	settings := domain.DefaultSettings()
	settings.Vault.Root = "/home/me/vault"
	settings.Vault.ExcludedFolders = []string{"templates", "archive"}
	settings.Gateway.Provider = domain.AIProviderAnthropic
	settings.Gateway.Model = "claude-3-5-haiku-latest"
	settings.Gateway.EmbeddingProvider = domain.AIProviderOllama
	settings.Gateway.EmbeddingModel = "nomic-embed-text"
	settings.Gateway.APIKey = "sk-test"
	settings.Linking.SimilarityThreshold = 0.8
	settings.Linking.BatchSize = 20
	settings.Linking.FreshnessWindow = 14 * 24 * time.Hour

	require.NoError(t, SaveSettings(store, settings))

	// Load through a fresh store to exercise the file round trip.
	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	loaded := LoadSettings(reopened)

	assert.Equal(t, settings.Vault, loaded.Vault)
	assert.Equal(t, settings.Gateway, loaded.Gateway)
	assert.Equal(t, settings.Linking, loaded.Linking)
}
