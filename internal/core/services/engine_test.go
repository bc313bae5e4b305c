package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/relink-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driving"
)

func testSettings() domain.Settings {
	settings := domain.DefaultSettings()
	settings.Linking.BatchSize = 2
	return settings
}

func markedNote(body string) string {
	return body + "\n\n" + domain.LinkMarker + "\n"
}

func threeNoteVault() *mockVault {
	return newMockVault(map[string]string{
		"a.md": markedNote("# Alpha\nNotes about compilers."),
		"b.md": markedNote("# Beta\nMore notes about compilers."),
		"c.md": markedNote("# Gamma\nCompiler adjacent notes."),
	})
}

func newTestRunner(vault *mockVault, gateway *mockGateway) (*LinkRunner, *memory.CacheStore) {
	cache := memory.NewCacheStore()
	runner := NewLinkRunner(cache, vault, gateway, nil, testSettings())
	runner.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return runner, cache
}

func TestRun_FullPipeline(t *testing.T) {
	vault := threeNoteVault()
	runner, cache := newTestRunner(vault, newMockGateway())

	report, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.NotesScanned)
	assert.Equal(t, 3, report.NotesEmbedded)
	assert.Equal(t, 3, report.CandidatePairs)
	assert.Equal(t, 3, report.PairsScored)
	assert.Equal(t, 0, report.BatchesFailed)
	assert.Equal(t, 6, report.LinksAdded)

	// Identical vectors give similarity 1 and a score of 8, so every
	// note links to the other two by title.
	content := vault.content("a.md")
	assert.Contains(t, content, domain.LinkMarker)
	assert.Contains(t, content, "- [[b]]")
	assert.Contains(t, content, "- [[c]]")

	stats, err := cache.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Notes)
	assert.Equal(t, 3, stats.Embeddings)
	assert.Equal(t, 3, stats.ScoredPairs)
	assert.Equal(t, 0, stats.UnresolvedFailures)
}

func TestRun_SecondRunSkipsFreshScores(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	runner, _ := newTestRunner(vault, gateway)

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	// Nothing changed: notes are embedded, scores are fresh.
	report, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, report.NotesEmbedded)
	assert.Equal(t, 0, report.PairsScored)
	assert.Equal(t, 0, report.LinksAdded)
	assert.Equal(t, 0, report.LinksRemoved)
}

func TestRun_ChangedNoteInvalidatesFreshScores(t *testing.T) {
	vault := threeNoteVault()
	runner, _ := newTestRunner(vault, newMockGateway())

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	// An edit minutes after the first run re-embeds the note and
	// re-scores its pairs even though the existing scores are well
	// inside the freshness window: a content change invalidates them.
	vault.files["a.md"] = markedNote("# Alpha\nRewritten from scratch.")

	report, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.NotesEmbedded)
	assert.Equal(t, 2, report.PairsScored)
	assert.Equal(t, 0, report.PairsSkipped)
}

func TestRun_ForceBypassesFreshness(t *testing.T) {
	vault := threeNoteVault()
	runner, _ := newTestRunner(vault, newMockGateway())

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), driving.RunOptions{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 3, report.PairsScored)
	assert.Equal(t, 0, report.PairsSkipped)
}

func TestRun_InterruptedEmbeddingStillGeneratesCandidates(t *testing.T) {
	vault := threeNoteVault()
	runner, cache := newTestRunner(vault, newMockGateway())
	ctx := context.Background()

	// A prior run persisted content hashes and stopped before
	// embedding, leaving notes with no vector and no pending change.
	for _, path := range []string{"a.md", "b.md", "c.md"} {
		require.NoError(t, cache.SaveNote(ctx, domain.Note{
			ID:          "note-" + path,
			Path:        path,
			Title:       strings.TrimSuffix(path, ".md"),
			ContentHash: domain.HashContent(vault.content(path)),
		}))
	}

	report, err := runner.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.NotesEmbedded)
	assert.Equal(t, 3, report.CandidatePairs)
	assert.Equal(t, 3, report.PairsScored)
}

func TestRun_FailedBatchIsJournaledAndRunContinues(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	gateway.scoreFunc = func(call int, pairs []driven.ScorePair) ([]driven.PairVerdict, error) {
		if call == 1 {
			return nil, domain.NewRemoteError(503, "upstream unavailable")
		}
		verdicts := make([]driven.PairVerdict, len(pairs))
		for i, pair := range pairs {
			verdicts[i] = driven.PairVerdict{ID1: pair.ID1, ID2: pair.ID2, Score: 8}
		}
		return verdicts, nil
	}
	runner, cache := newTestRunner(vault, gateway)

	report, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err, "a failed batch does not fail the run")

	assert.Equal(t, 1, report.BatchesFailed)
	assert.Equal(t, 1, report.PairsScored, "the second batch still persisted")

	unresolved, err := cache.UnresolvedFailures(context.Background())
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, domain.OperationScoring, unresolved[0].Operation)
	assert.Len(t, unresolved[0].Batch.ItemKeys, 2)
}

func TestRetryFailures_ReprocessesJournaledPairs(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	gateway.scoreFunc = func(call int, pairs []driven.ScorePair) ([]driven.PairVerdict, error) {
		if call == 1 {
			return nil, domain.NewRemoteError(503, "upstream unavailable")
		}
		verdicts := make([]driven.PairVerdict, len(pairs))
		for i, pair := range pairs {
			verdicts[i] = driven.PairVerdict{ID1: pair.ID1, ID2: pair.ID2, Score: 8}
		}
		return verdicts, nil
	}
	runner, cache := newTestRunner(vault, gateway)

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	report, err := runner.RetryFailures(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.PairsScored, "exactly the journaled pairs")
	assert.Equal(t, 0, report.BatchesFailed)

	unresolved, err := cache.UnresolvedFailures(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestRetryFailures_EmptyJournalIsNoop(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	runner, _ := newTestRunner(vault, gateway)

	report, err := runner.RetryFailures(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.PairsScored)
	assert.Equal(t, 0, gateway.scoreCalls)
	assert.Equal(t, 0, gateway.embedCalls)
}

func TestRun_JournaledPairBypassesFreshness(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	gateway.scoreFunc = func(call int, pairs []driven.ScorePair) ([]driven.PairVerdict, error) {
		if call == 1 {
			return nil, domain.NewRemoteError(503, "upstream unavailable")
		}
		verdicts := make([]driven.PairVerdict, len(pairs))
		for i, pair := range pairs {
			verdicts[i] = driven.PairVerdict{ID1: pair.ID1, ID2: pair.ID2, Score: 8}
		}
		return verdicts, nil
	}
	runner, cache := newTestRunner(vault, gateway)

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	// A plain smart run with no vault changes still re-scores the
	// journaled pairs.
	report, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.PairsScored)

	unresolved, err := cache.UnresolvedFailures(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestRun_ConfigurationErrorAborts(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	gateway.scoreFunc = func(_ int, _ []driven.ScorePair) ([]driven.PairVerdict, error) {
		return nil, domain.NewRemoteError(401, "invalid api key")
	}
	runner, _ := newTestRunner(vault, gateway)

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsConfiguration(err))
	assert.Equal(t, 1, gateway.scoreCalls, "no further batches after a configuration error")
}

func TestRun_SecondRunWhileActiveIsRejected(t *testing.T) {
	runner, _ := newTestRunner(threeNoteVault(), newMockGateway())

	require.NoError(t, runner.begin())
	defer runner.end()

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

func TestRun_CancellationStopsBetweenBatches(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	ctx, cancel := context.WithCancel(context.Background())
	gateway.scoreFunc = func(_ int, pairs []driven.ScorePair) ([]driven.PairVerdict, error) {
		cancel()
		verdicts := make([]driven.PairVerdict, len(pairs))
		for i, pair := range pairs {
			verdicts[i] = driven.PairVerdict{ID1: pair.ID1, ID2: pair.ID2, Score: 8}
		}
		return verdicts, nil
	}
	runner, _ := newTestRunner(vault, gateway)

	_, err := runner.Run(ctx, driving.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRunCancelled)
	assert.Equal(t, 1, gateway.scoreCalls)
	assert.Equal(t, driving.PhaseCancelled, runner.Status().Phase)
}

func TestRun_ShortVerdictListPadsNeutralScores(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	gateway.scoreFunc = func(_ int, pairs []driven.ScorePair) ([]driven.PairVerdict, error) {
		// Answer only the first pair of each batch.
		return []driven.PairVerdict{
			{ID1: pairs[0].ID1, ID2: pairs[0].ID2, Score: 9, Reasoning: "clear match"},
		}, nil
	}
	runner, cache := newTestRunner(vault, gateway)

	report, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.PairsScored)

	defaulted := 0
	for _, id := range []string{"a", "b", "c"} {
		note, err := cache.GetNoteByPath(context.Background(), id+".md")
		require.NoError(t, err)
		scores, err := cache.ScoresForNote(context.Background(), note.ID, domain.ScoreFilter{})
		require.NoError(t, err)
		for _, score := range scores {
			if score.AIScore == 5 {
				assert.Contains(t, score.Reasoning, "score defaulted")
				defaulted++
			}
		}
	}
	assert.Equal(t, 2, defaulted, "one unanswered pair, seen from both member notes")
}

func TestRun_NoteWithoutMarkerIsNeverWritten(t *testing.T) {
	vault := newMockVault(map[string]string{
		"a.md":     markedNote("# Alpha\nCompilers."),
		"b.md":     markedNote("# Beta\nCompilers."),
		"plain.md": "# Plain\nNo marker here.",
	})
	runner, _ := newTestRunner(vault, newMockGateway())

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, vault.writeCount("plain.md"))
	assert.Equal(t, "# Plain\nNo marker here.", vault.content("plain.md"))
	assert.Greater(t, vault.writeCount("a.md"), 0)
}

func TestRun_LinkRemovalWhenScoreDrops(t *testing.T) {
	vault := newMockVault(map[string]string{
		"a.md": markedNote("# Alpha\nCompilers."),
		"b.md": markedNote("# Beta\nCompilers."),
	})
	gateway := newMockGateway()
	runner, _ := newTestRunner(vault, gateway)

	report, err := runner.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.LinksAdded)
	assert.Contains(t, vault.content("a.md"), "- [[b]]")

	// The pair drops below the score threshold on rescore.
	gateway.scoreFunc = func(_ int, pairs []driven.ScorePair) ([]driven.PairVerdict, error) {
		verdicts := make([]driven.PairVerdict, len(pairs))
		for i, pair := range pairs {
			verdicts[i] = driven.PairVerdict{ID1: pair.ID1, ID2: pair.ID2, Score: 2}
		}
		return verdicts, nil
	}

	report, err = runner.Run(context.Background(), driving.RunOptions{Force: true})
	require.NoError(t, err)

	assert.Equal(t, 2, report.LinksRemoved)
	assert.NotContains(t, vault.content("a.md"), "- [[b]]")
	assert.Contains(t, vault.content("a.md"), domain.LinkMarker)
}

func TestGenerateTags_WritesFrontMatter(t *testing.T) {
	vault := threeNoteVault()
	runner, _ := newTestRunner(vault, newMockGateway())

	report, err := runner.GenerateTags(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.NotesTagged)
	assert.Equal(t, 0, report.BatchesFailed)

	content := vault.content("a.md")
	tags := domain.FrontMatterTags(content)
	assert.ElementsMatch(t, []string{"go", "notes"}, tags)
	assert.Contains(t, content, "# Alpha", "body preserved")
}

func TestGenerateTags_WriteFailureIsJournaledNotCommitted(t *testing.T) {
	vault := threeNoteVault()
	runner, cache := newTestRunner(vault, newMockGateway())
	ctx := context.Background()

	vault.writeErr = errors.New("read-only file system")

	report, err := runner.GenerateTags(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, report.NotesTagged)
	assert.Equal(t, 2, report.BatchesFailed)

	// The cache must not believe the tags are applied: the files were
	// never written, and the notes must be journaled for retry.
	note, err := cache.GetNoteByPath(ctx, "a.md")
	require.NoError(t, err)
	assert.Empty(t, note.Tags)
	assert.Empty(t, domain.FrontMatterTags(vault.content("a.md")))

	unresolved, err := cache.UnresolvedFailures(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 2)
	for _, record := range unresolved {
		assert.Equal(t, domain.OperationTagging, record.Operation)
	}

	// Once the vault recovers, retry applies the tags and empties the
	// journal.
	vault.writeErr = nil
	retryReport, err := runner.RetryFailures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, retryReport.BatchesFailed)
	assert.ElementsMatch(t, []string{"go", "notes"}, domain.FrontMatterTags(vault.content("a.md")))

	unresolved, err = cache.UnresolvedFailures(ctx)
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestGenerateTags_FailedBatchJournaledWithNoteIDs(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	gateway.tagFunc = func(_ []driven.TagRequest) ([]driven.TagSuggestion, error) {
		return nil, domain.NewRemoteError(503, "upstream unavailable")
	}
	runner, cache := newTestRunner(vault, gateway)

	report, err := runner.GenerateTags(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.NotesTagged)
	assert.Equal(t, 2, report.BatchesFailed)

	unresolved, err := cache.UnresolvedFailures(context.Background())
	require.NoError(t, err)
	require.Len(t, unresolved, 2)
	for _, record := range unresolved {
		assert.Equal(t, domain.OperationTagging, record.Operation)
	}
}

func TestStatus_IdleByDefault(t *testing.T) {
	runner, _ := newTestRunner(threeNoteVault(), newMockGateway())

	status := runner.Status()
	assert.False(t, status.Running)
	assert.Equal(t, driving.PhaseIdle, status.Phase)
}

func TestTruncate_CountsRunesNotBytes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héllo", truncate("héllo", 0), "zero limit means no cap")
	assert.Equal(t, "hél", truncate("héllo", 3))
	assert.Equal(t, "日本", truncate("日本語のノート", 2))
	assert.Equal(t, "héllo", truncate("héllo", 5), "limit equal to rune count keeps everything")
}

func TestRun_EmbedFailureAborts(t *testing.T) {
	vault := threeNoteVault()
	gateway := newMockGateway()
	gateway.embedFunc = func(_ []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}
	runner, _ := newTestRunner(vault, gateway)

	_, err := runner.Run(context.Background(), driving.RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed notes")
}
