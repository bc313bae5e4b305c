package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
)

func TestStatsCommand(t *testing.T) {
	cleanup := setupEngineTest(&mockLinkEngine{})
	defer cleanup()

	cacheStore = &mockCacheStore{
		statsFunc: func(_ context.Context) (*domain.CacheStats, error) {
			return &domain.CacheStats{
				Notes:              42,
				Embeddings:         40,
				ScoredPairs:        120,
				LedgerEntries:      35,
				UnresolvedFailures: 1,
			}, nil
		},
	}

	output, err := executeCommand("stats")
	require.NoError(t, err)

	assert.Contains(t, output, "Notes:               42")
	assert.Contains(t, output, "Scored pairs:        120")
	assert.Contains(t, output, "Unresolved failures: 1")
}

func TestCacheCleanCommand(t *testing.T) {
	cleanup := setupEngineTest(&mockLinkEngine{})
	defer cleanup()

	mock := &mockCacheStore{}
	cacheStore = mock

	output, err := executeCommand("cache", "clean")
	require.NoError(t, err)

	assert.Equal(t, 1, mock.cleanCalls)
	assert.Contains(t, output, "Removed orphaned cache rows")
}

func TestCacheClearCommand_WithYesFlag(t *testing.T) {
	cleanup := setupEngineTest(&mockLinkEngine{})
	defer cleanup()

	mock := &mockCacheStore{}
	cacheStore = mock

	output, err := executeCommand("cache", "clear", "--yes")
	require.NoError(t, err)

	assert.Equal(t, 1, mock.clearCalls)
	assert.Contains(t, output, "Cache cleared")
}

func TestCacheClearCommand_AbortsWithoutConfirmation(t *testing.T) {
	cleanup := setupEngineTest(&mockLinkEngine{})
	defer cleanup()

	mock := &mockCacheStore{}
	cacheStore = mock

	rootCmd.SetIn(strings.NewReader("n\n"))
	output, err := executeCommand("cache", "clear")
	require.NoError(t, err)

	assert.Equal(t, 0, mock.clearCalls)
	assert.Contains(t, output, "Aborted")
}
