// Package memory provides an in-memory driven.CacheStore. It backs
// engine tests and ad-hoc dry runs where persistence is unwanted;
// production runs use the SQLite store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu         sync.RWMutex
	notes      map[string]domain.Note
	embeddings map[string]domain.Embedding
	scores     map[domain.PairKey]domain.PairScore
	ledger     map[string][]string
	failures   map[string]domain.FailureRecord

	// FlushCount tracks write-through flushes for test assertions.
	FlushCount int
}

// NewCacheStore creates an empty in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		notes:      make(map[string]domain.Note),
		embeddings: make(map[string]domain.Embedding),
		scores:     make(map[domain.PairKey]domain.PairScore),
		ledger:     make(map[string][]string),
		failures:   make(map[string]domain.FailureRecord),
	}
}

// ==================== Notes ====================

// SaveNote stores or updates a note by id.
func (s *CacheStore) SaveNote(_ context.Context, note domain.Note) error {
	if note.ID == "" || note.Path == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[note.ID] = note
	return nil
}

// GetNote retrieves a note by id.
func (s *CacheStore) GetNote(_ context.Context, id string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &note, nil
}

// GetNoteByPath retrieves a note by vault-relative path.
func (s *CacheStore) GetNoteByPath(_ context.Context, path string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, note := range s.notes {
		if note.Path == path {
			n := note
			return &n, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListNotes returns all cached notes sorted by path.
func (s *CacheStore) ListNotes(_ context.Context) ([]domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Note, 0, len(s.notes))
	for _, note := range s.notes {
		result = append(result, note)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// DeleteNote removes a note by id.
func (s *CacheStore) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	return nil
}

// ==================== Embeddings ====================

// SaveEmbedding stores or replaces a note's embedding.
func (s *CacheStore) SaveEmbedding(_ context.Context, emb domain.Embedding) error {
	if emb.NoteID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings[emb.NoteID] = emb
	return nil
}

// GetEmbedding retrieves a note's embedding.
func (s *CacheStore) GetEmbedding(_ context.Context, noteID string) (*domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emb, ok := s.embeddings[noteID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &emb, nil
}

// ListEmbeddings returns all stored embeddings.
func (s *CacheStore) ListEmbeddings(_ context.Context) ([]domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Embedding, 0, len(s.embeddings))
	for _, emb := range s.embeddings {
		result = append(result, emb)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NoteID < result[j].NoteID })
	return result, nil
}

// DeleteEmbedding removes a note's embedding.
func (s *CacheStore) DeleteEmbedding(_ context.Context, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.embeddings, noteID)
	return nil
}

// ==================== Scores ====================

// SaveScore upserts one pair score under canonical identity.
func (s *CacheStore) SaveScore(_ context.Context, score domain.PairScore) error {
	return s.SaveScores(nil, []domain.PairScore{score})
}

// SaveScores upserts a batch of pair scores.
func (s *CacheStore) SaveScores(_ context.Context, scores []domain.PairScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, score := range scores {
		score = score.Canonicalise()
		if score.ID1 == "" || score.ID2 == "" || score.ID1 == score.ID2 {
			return domain.ErrInvalidInput
		}
		s.scores[score.Key()] = score
	}
	return nil
}

// GetScore retrieves the score for a canonical pair.
func (s *CacheStore) GetScore(_ context.Context, key domain.PairKey) (*domain.PairScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &score, nil
}

// ScoresForNote returns all scores touching a note, oriented so the
// queried note is ID1, best score first.
func (s *CacheStore) ScoresForNote(_ context.Context, noteID string, filter domain.ScoreFilter) ([]domain.PairScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.PairScore
	for key, score := range s.scores {
		if key.Other(noteID) == "" {
			continue
		}
		if score.Similarity < filter.MinSimilarity || score.AIScore < filter.MinAIScore {
			continue
		}
		result = append(result, score.Oriented(noteID))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AIScore != result[j].AIScore {
			return result[i].AIScore > result[j].AIScore
		}
		return result[i].ID2 < result[j].ID2
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// ==================== Link ledger ====================

// LedgerTargets returns the current target ids for a source note.
func (s *CacheStore) LedgerTargets(_ context.Context, sourceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	targets := make([]string, len(s.ledger[sourceID]))
	copy(targets, s.ledger[sourceID])
	sort.Strings(targets)
	return targets, nil
}

// ReplaceLedgerTargets rewrites a source note's ledger entries.
func (s *CacheStore) ReplaceLedgerTargets(_ context.Context, sourceID string, targetIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(targetIDs) == 0 {
		delete(s.ledger, sourceID)
		return nil
	}
	targets := make([]string, len(targetIDs))
	copy(targets, targetIDs)
	s.ledger[sourceID] = targets
	return nil
}

// ListLedger returns all ledger entries.
func (s *CacheStore) ListLedger(_ context.Context) ([]domain.LinkEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.LinkEntry
	for sourceID, targets := range s.ledger {
		for _, targetID := range targets {
			result = append(result, domain.LinkEntry{SourceID: sourceID, TargetID: targetID})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SourceID != result[j].SourceID {
			return result[i].SourceID < result[j].SourceID
		}
		return result[i].TargetID < result[j].TargetID
	})
	return result, nil
}

// ==================== Failure log ====================

// RecordFailure appends a failure record, overwriting by id.
func (s *CacheStore) RecordFailure(_ context.Context, record domain.FailureRecord) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[record.ID] = record
	return nil
}

// UnresolvedFailures returns all records with resolved = false,
// oldest first.
func (s *CacheStore) UnresolvedFailures(_ context.Context) ([]domain.FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.FailureRecord
	for _, record := range s.failures {
		if !record.Resolved {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// DeleteFailure removes a failure record by id.
func (s *CacheStore) DeleteFailure(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, id)
	return nil
}

// ==================== Maintenance ====================

// Stats aggregates cache contents.
func (s *CacheStore) Stats(_ context.Context) (*domain.CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.CacheStats{
		Notes:      len(s.notes),
		Embeddings: len(s.embeddings),
	}
	stats.ScoredPairs = len(s.scores)
	for _, targets := range s.ledger {
		stats.LedgerEntries += len(targets)
	}
	for _, record := range s.failures {
		if !record.Resolved {
			stats.UnresolvedFailures++
		}
	}
	return stats, nil
}

// CleanOrphans deletes rows referencing notes no longer present.
func (s *CacheStore) CleanOrphans(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.embeddings {
		if _, ok := s.notes[id]; !ok {
			delete(s.embeddings, id)
		}
	}
	for key := range s.scores {
		_, ok1 := s.notes[key.ID1]
		_, ok2 := s.notes[key.ID2]
		if !ok1 || !ok2 {
			delete(s.scores, key)
		}
	}
	for sourceID, targets := range s.ledger {
		if _, ok := s.notes[sourceID]; !ok {
			delete(s.ledger, sourceID)
			continue
		}
		kept := targets[:0]
		for _, targetID := range targets {
			if _, ok := s.notes[targetID]; ok {
				kept = append(kept, targetID)
			}
		}
		if len(kept) == 0 {
			delete(s.ledger, sourceID)
		} else {
			s.ledger[sourceID] = kept
		}
	}
	return nil
}

// Clear drops all cached rows.
func (s *CacheStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = make(map[string]domain.Note)
	s.embeddings = make(map[string]domain.Embedding)
	s.scores = make(map[domain.PairKey]domain.PairScore)
	s.ledger = make(map[string][]string)
	s.failures = make(map[string]domain.FailureRecord)
	return nil
}

// Flush is counted but otherwise a no-op for the in-memory store.
func (s *CacheStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FlushCount++
	return nil
}

// Close releases the store.
func (s *CacheStore) Close() error {
	return nil
}
