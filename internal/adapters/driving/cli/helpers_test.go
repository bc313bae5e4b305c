package cli

import (
	"bytes"
	"context"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driving"
)

// executeCommand runs the root command with args and captures output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// ==================== LinkEngine mock ====================

type mockLinkEngine struct {
	runFunc    func(ctx context.Context, opts driving.RunOptions) (*driving.RunReport, error)
	retryFunc  func(ctx context.Context) (*driving.RunReport, error)
	tagsFunc   func(ctx context.Context) (*driving.TagReport, error)
	lastOpts   driving.RunOptions
	runCalls   int
	retryCalls int
}

func (m *mockLinkEngine) Run(ctx context.Context, opts driving.RunOptions) (*driving.RunReport, error) {
	m.runCalls++
	m.lastOpts = opts
	if m.runFunc != nil {
		return m.runFunc(ctx, opts)
	}
	return &driving.RunReport{}, nil
}

func (m *mockLinkEngine) RetryFailures(ctx context.Context) (*driving.RunReport, error) {
	m.retryCalls++
	if m.retryFunc != nil {
		return m.retryFunc(ctx)
	}
	return &driving.RunReport{}, nil
}

func (m *mockLinkEngine) GenerateTags(ctx context.Context) (*driving.TagReport, error) {
	if m.tagsFunc != nil {
		return m.tagsFunc(ctx)
	}
	return &driving.TagReport{}, nil
}

func (m *mockLinkEngine) Status() *driving.RunStatus {
	return &driving.RunStatus{Phase: driving.PhaseIdle}
}

// setupEngineTest installs a mock engine and returns a restore func.
func setupEngineTest(mock *mockLinkEngine) func() {
	prevEngine := linkEngine
	prevCache := cacheStore
	linkEngine = mock
	cacheStore = &mockCacheStore{}
	return func() {
		linkEngine = prevEngine
		cacheStore = prevCache
		forceFlag = false
		listFailuresFlag = false
		cacheYesFlag = false
	}
}

// ==================== CacheStore mock ====================

// mockCacheStore satisfies driven.CacheStore. Only the methods the
// CLI calls are configurable; the rest are inert.
type mockCacheStore struct {
	statsFunc      func(ctx context.Context) (*domain.CacheStats, error)
	unresolvedFunc func(ctx context.Context) ([]domain.FailureRecord, error)
	cleanCalls     int
	clearCalls     int
}

var _ driven.CacheStore = (*mockCacheStore)(nil)

func (m *mockCacheStore) Stats(ctx context.Context) (*domain.CacheStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return &domain.CacheStats{}, nil
}

func (m *mockCacheStore) UnresolvedFailures(ctx context.Context) ([]domain.FailureRecord, error) {
	if m.unresolvedFunc != nil {
		return m.unresolvedFunc(ctx)
	}
	return nil, nil
}

func (m *mockCacheStore) CleanOrphans(context.Context) error {
	m.cleanCalls++
	return nil
}

func (m *mockCacheStore) Clear(context.Context) error {
	m.clearCalls++
	return nil
}

func (m *mockCacheStore) SaveNote(context.Context, domain.Note) error { return nil }
func (m *mockCacheStore) GetNote(context.Context, string) (*domain.Note, error) {
	return nil, domain.ErrNotFound
}
func (m *mockCacheStore) GetNoteByPath(context.Context, string) (*domain.Note, error) {
	return nil, domain.ErrNotFound
}
func (m *mockCacheStore) ListNotes(context.Context) ([]domain.Note, error) { return nil, nil }
func (m *mockCacheStore) DeleteNote(context.Context, string) error         { return nil }

func (m *mockCacheStore) SaveEmbedding(context.Context, domain.Embedding) error { return nil }
func (m *mockCacheStore) GetEmbedding(context.Context, string) (*domain.Embedding, error) {
	return nil, domain.ErrNotFound
}
func (m *mockCacheStore) ListEmbeddings(context.Context) ([]domain.Embedding, error) {
	return nil, nil
}
func (m *mockCacheStore) DeleteEmbedding(context.Context, string) error { return nil }

func (m *mockCacheStore) SaveScore(context.Context, domain.PairScore) error    { return nil }
func (m *mockCacheStore) SaveScores(context.Context, []domain.PairScore) error { return nil }
func (m *mockCacheStore) GetScore(context.Context, domain.PairKey) (*domain.PairScore, error) {
	return nil, domain.ErrNotFound
}
func (m *mockCacheStore) ScoresForNote(context.Context, string, domain.ScoreFilter) ([]domain.PairScore, error) {
	return nil, nil
}

func (m *mockCacheStore) LedgerTargets(context.Context, string) ([]string, error) { return nil, nil }
func (m *mockCacheStore) ReplaceLedgerTargets(context.Context, string, []string) error {
	return nil
}
func (m *mockCacheStore) ListLedger(context.Context) ([]domain.LinkEntry, error) { return nil, nil }

func (m *mockCacheStore) RecordFailure(context.Context, domain.FailureRecord) error { return nil }
func (m *mockCacheStore) DeleteFailure(context.Context, string) error               { return nil }

func (m *mockCacheStore) Flush(context.Context) error { return nil }
func (m *mockCacheStore) Close() error                { return nil }
