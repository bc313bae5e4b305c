package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driving"
)

func TestRetryCommand_NothingToRetry(t *testing.T) {
	mock := &mockLinkEngine{}
	cleanup := setupEngineTest(mock)
	defer cleanup()

	output, err := executeCommand("retry")
	require.NoError(t, err)

	assert.Equal(t, 1, mock.retryCalls)
	assert.Contains(t, output, "No unresolved failures to retry")
}

func TestRetryCommand_PrintsReport(t *testing.T) {
	mock := &mockLinkEngine{
		retryFunc: func(_ context.Context) (*driving.RunReport, error) {
			return &driving.RunReport{PairsScored: 5, LinksAdded: 2}, nil
		},
	}
	cleanup := setupEngineTest(mock)
	defer cleanup()

	output, err := executeCommand("retry")
	require.NoError(t, err)

	assert.Contains(t, output, "Pairs scored:     5")
}

func TestRetryCommand_ListFailures(t *testing.T) {
	cleanup := setupEngineTest(&mockLinkEngine{})
	defer cleanup()

	cacheStore = &mockCacheStore{
		unresolvedFunc: func(_ context.Context) ([]domain.FailureRecord, error) {
			return []domain.FailureRecord{
				{
					ID:        "abc",
					Timestamp: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
					Operation: domain.OperationScoring,
					Batch: domain.BatchInfo{
						ItemKeys: []string{"a|b", "a|c"},
					},
					ErrorMessage: "model timeout",
				},
			}, nil
		},
	}

	output, err := executeCommand("retry", "--list")
	require.NoError(t, err)

	assert.Contains(t, output, "Unresolved failures: 1")
	assert.Contains(t, output, "2026-03-01 09:30")
	assert.Contains(t, output, "2 items")
	assert.Contains(t, output, "model timeout")
}

func TestRetryCommand_ListEmpty(t *testing.T) {
	cleanup := setupEngineTest(&mockLinkEngine{})
	defer cleanup()

	output, err := executeCommand("retry", "--list")
	require.NoError(t, err)

	assert.Contains(t, output, "No unresolved failures")
}
