package driven

import (
	"context"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
)

// CacheStore is the durable, content-addressed cache backing smart
// (incremental) and force (full) processing. It owns the five
// relational tables (documents, embeddings, pair_scores, link_ledger,
// failure_log) and a derived in-memory bidirectional score index.
//
// The store is single-writer: exactly one linking run may mutate it
// at a time, enforced by the engine's run guard, not by the store.
type CacheStore interface {
	NoteStore
	EmbeddingStore
	ScoreStore
	LinkLedger
	FailureLog

	// Stats aggregates cache contents for reporting.
	Stats(ctx context.Context) (*domain.CacheStats, error)

	// CleanOrphans deletes embeddings, scores and ledger entries that
	// reference notes no longer present. The schema has no cross-table
	// cascade, so consistency is maintained here.
	CleanOrphans(ctx context.Context) error

	// Clear drops all cached rows. The only operation that physically
	// deletes notes.
	Clear(ctx context.Context) error

	// Flush serialises pending mutations to durable storage when the
	// store is dirty. The engine flushes after every batch so a crash
	// loses at most one in-flight batch.
	Flush(ctx context.Context) error

	// Close flushes and releases the store.
	Close() error
}

// NoteStore persists cached note metadata.
type NoteStore interface {
	// SaveNote stores or updates a note by id.
	SaveNote(ctx context.Context, note domain.Note) error

	// GetNote retrieves a note by id.
	// Returns domain.ErrNotFound when absent.
	GetNote(ctx context.Context, id string) (*domain.Note, error)

	// GetNoteByPath retrieves a note by vault-relative path.
	GetNoteByPath(ctx context.Context, path string) (*domain.Note, error)

	// ListNotes returns all cached notes.
	ListNotes(ctx context.Context) ([]domain.Note, error)

	// DeleteNote removes a note by id.
	DeleteNote(ctx context.Context, id string) error
}

// EmbeddingStore persists note embeddings as packed binary floats.
type EmbeddingStore interface {
	// SaveEmbedding stores or replaces a note's embedding wholesale.
	SaveEmbedding(ctx context.Context, emb domain.Embedding) error

	// GetEmbedding retrieves a note's embedding.
	// Returns domain.ErrNotFound when absent.
	GetEmbedding(ctx context.Context, noteID string) (*domain.Embedding, error)

	// ListEmbeddings returns all stored embeddings.
	ListEmbeddings(ctx context.Context) ([]domain.Embedding, error)

	// DeleteEmbedding removes a note's embedding.
	DeleteEmbedding(ctx context.Context, noteID string) error
}

// ScoreStore persists pair scores under canonical pair identity.
type ScoreStore interface {
	// SaveScore upserts one pair score. The pair is canonicalised
	// before writing.
	SaveScore(ctx context.Context, score domain.PairScore) error

	// SaveScores upserts a batch of pair scores.
	SaveScores(ctx context.Context, scores []domain.PairScore) error

	// GetScore retrieves the score for a canonical pair.
	// Returns domain.ErrNotFound when the pair has never been scored.
	GetScore(ctx context.Context, key domain.PairKey) (*domain.PairScore, error)

	// ScoresForNote returns all scores touching a note, oriented so
	// the queried note is ID1, filtered and capped per filter.
	// Backed by the in-memory bidirectional index.
	ScoresForNote(ctx context.Context, noteID string, filter domain.ScoreFilter) ([]domain.PairScore, error)
}

// LinkLedger records links the engine previously inserted.
// Entries are created and removed exclusively by reconciliation.
type LinkLedger interface {
	// LedgerTargets returns the current target ids for a source note.
	LedgerTargets(ctx context.Context, sourceID string) ([]string, error)

	// ReplaceLedgerTargets rewrites a source note's ledger entries to
	// exactly the given target set.
	ReplaceLedgerTargets(ctx context.Context, sourceID string, targetIDs []string) error

	// ListLedger returns all ledger entries.
	ListLedger(ctx context.Context) ([]domain.LinkEntry, error)
}

// FailureLog persists unresolved batch failures. It is the sole
// source of truth for what must be retried.
type FailureLog interface {
	// RecordFailure appends a failure record. Re-recording an
	// identical batch descriptor overwrites rather than duplicates.
	RecordFailure(ctx context.Context, record domain.FailureRecord) error

	// UnresolvedFailures returns all records with resolved = false.
	UnresolvedFailures(ctx context.Context) ([]domain.FailureRecord, error)

	// DeleteFailure removes a failure record by id.
	DeleteFailure(ctx context.Context, id string) error
}
