package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// ==================== Vault mock ====================

type mockVault struct {
	mu       sync.Mutex
	files    map[string]string
	writes   map[string]int
	writeErr error
}

var _ driven.Vault = (*mockVault)(nil)

func newMockVault(files map[string]string) *mockVault {
	copied := make(map[string]string, len(files))
	for path, content := range files {
		copied[path] = content
	}
	return &mockVault{files: copied, writes: make(map[string]int)}
}

func (v *mockVault) Scan(_ context.Context) ([]domain.VaultFile, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	paths := make([]string, 0, len(v.files))
	for path := range v.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	files := make([]domain.VaultFile, len(paths))
	for i, path := range paths {
		files[i] = domain.VaultFile{
			Path:       path,
			Title:      strings.TrimSuffix(path, ".md"),
			ModifiedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return files, nil
}

func (v *mockVault) Read(_ context.Context, path string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	content, ok := v.files[path]
	if !ok {
		return "", domain.ErrNotFound
	}
	return content, nil
}

func (v *mockVault) Write(_ context.Context, path, content string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.writeErr != nil {
		return v.writeErr
	}
	v.files[path] = content
	v.writes[path]++
	return nil
}

func (v *mockVault) content(path string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.files[path]
}

func (v *mockVault) writeCount(path string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writes[path]
}

// ==================== Gateway mock ====================

type mockGateway struct {
	mu         sync.Mutex
	embedFunc  func(texts []string) ([][]float32, error)
	scoreFunc  func(call int, pairs []driven.ScorePair) ([]driven.PairVerdict, error)
	tagFunc    func(notes []driven.TagRequest) ([]driven.TagSuggestion, error)
	embedCalls int
	scoreCalls int
}

var _ driven.ModelGateway = (*mockGateway)(nil)

// newMockGateway returns a gateway whose defaults embed every text to
// the same vector and rate every pair 8.
func newMockGateway() *mockGateway {
	return &mockGateway{}
}

func (g *mockGateway) Embed(_ context.Context, texts []string) ([][]float32, error) {
	g.mu.Lock()
	g.embedCalls++
	fn := g.embedFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (g *mockGateway) ScorePairs(_ context.Context, pairs []driven.ScorePair, _ string) ([]driven.PairVerdict, error) {
	g.mu.Lock()
	g.scoreCalls++
	call := g.scoreCalls
	fn := g.scoreFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(call, pairs)
	}
	verdicts := make([]driven.PairVerdict, len(pairs))
	for i, pair := range pairs {
		verdicts[i] = driven.PairVerdict{ID1: pair.ID1, ID2: pair.ID2, Score: 8, Reasoning: "related"}
	}
	return verdicts, nil
}

func (g *mockGateway) SuggestTags(_ context.Context, notes []driven.TagRequest, _ string, _, _ int) ([]driven.TagSuggestion, error) {
	g.mu.Lock()
	fn := g.tagFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(notes)
	}
	suggestions := make([]driven.TagSuggestion, len(notes))
	for i, note := range notes {
		suggestions[i] = driven.TagSuggestion{ID: note.ID, Tags: []string{"go", "notes"}}
	}
	return suggestions, nil
}

func (g *mockGateway) ModelName() string          { return "test-model" }
func (g *mockGateway) EmbeddingModelName() string { return "test-embed" }
func (g *mockGateway) Ping(context.Context) error { return nil }
func (g *mockGateway) Close() error               { return nil }
