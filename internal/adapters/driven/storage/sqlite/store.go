package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/relink-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// Store is the SQLite-backed cache store. Alongside the database it
// maintains an in-memory mirror of pair_scores indexed by both pair
// members, so per-note score lookups never touch disk.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	scores map[domain.PairKey]domain.PairScore
	byNote map[string]map[domain.PairKey]struct{}
	dirty  bool
}

var _ driven.CacheStore = (*Store)(nil)

// NewStore opens (creating if needed) the cache database under
// dataDir. If dataDir is empty, defaults to ~/.relink/data/cache.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".relink", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cache.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:     db,
		path:   dbPath,
		scores: make(map[domain.PairKey]domain.PairScore),
		byNote: make(map[string]map[domain.PairKey]struct{}),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.loadScoreIndex(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading score index: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints pending writes and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(context.Background()); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// Flush checkpoints the WAL into the main database file when the
// store has unflushed mutations. Callers flush after every batch so a
// crash loses at most one in-flight batch.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	dirty := s.dirty
	s.dirty = false
	s.mu.Unlock()

	if !dirty {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpointing wal: %w", err)
	}
	return nil
}

func (s *Store) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// loadScoreIndex mirrors pair_scores into memory at open.
func (s *Store) loadScoreIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id_1, id_2, similarity_score, ai_score, model, reasoning, updated_at
		FROM pair_scores
	`)
	if err != nil {
		return fmt.Errorf("querying pair scores: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return err
		}
		s.indexScoreLocked(*score)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating pair scores: %w", err)
	}
	return nil
}

// indexScoreLocked inserts a score into both index directions.
// Caller holds s.mu.
func (s *Store) indexScoreLocked(score domain.PairScore) {
	key := score.Key()
	s.scores[key] = score
	for _, id := range []string{key.ID1, key.ID2} {
		if s.byNote[id] == nil {
			s.byNote[id] = make(map[domain.PairKey]struct{})
		}
		s.byNote[id][key] = struct{}{}
	}
}

// unindexScoreLocked removes a pair from both index directions.
// Caller holds s.mu.
func (s *Store) unindexScoreLocked(key domain.PairKey) {
	delete(s.scores, key)
	for _, id := range []string{key.ID1, key.ID2} {
		if keys := s.byNote[id]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.byNote, id)
			}
		}
	}
}

// ==================== Note Store ====================

// SaveNote stores or updates a note by id.
func (s *Store) SaveNote(ctx context.Context, note domain.Note) error {
	if note.ID == "" || note.Path == "" {
		return domain.ErrInvalidInput
	}

	tagsJSON, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}

	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, path, content_hash, created_at, modified_at, title, tags_json, embedding_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			content_hash = excluded.content_hash,
			modified_at = excluded.modified_at,
			title = excluded.title,
			tags_json = excluded.tags_json,
			embedding_updated_at = excluded.embedding_updated_at
	`, note.ID, note.Path, note.ContentHash, note.CreatedAt, note.ModifiedAt,
		note.Title, string(tagsJSON), nullTime(note.EmbeddingUpdatedAt))

	if err != nil {
		return fmt.Errorf("saving note: %w", err)
	}
	s.markDirty()
	return nil
}

// GetNote retrieves a note by id.
func (s *Store) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, content_hash, created_at, modified_at, title, tags_json, embedding_updated_at
		FROM documents WHERE id = ?
	`, id)

	return scanNote(row)
}

// GetNoteByPath retrieves a note by vault-relative path.
func (s *Store) GetNoteByPath(ctx context.Context, path string) (*domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, content_hash, created_at, modified_at, title, tags_json, embedding_updated_at
		FROM documents WHERE path = ?
	`, path)

	return scanNote(row)
}

// ListNotes returns all cached notes.
func (s *Store) ListNotes(ctx context.Context) ([]domain.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, content_hash, created_at, modified_at, title, tags_json, embedding_updated_at
		FROM documents ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note //nolint:prealloc // size unknown from query
	for rows.Next() {
		note, err := scanNoteRows(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}
	return notes, nil
}

// DeleteNote removes a note by id.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	s.markDirty()
	return nil
}

// ==================== Embedding Store ====================

// SaveEmbedding stores or replaces a note's embedding wholesale.
func (s *Store) SaveEmbedding(ctx context.Context, emb domain.Embedding) error {
	if emb.NoteID == "" || len(emb.Vector) == 0 {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (document_id, vector, model, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			vector = excluded.vector,
			model = excluded.model,
			created_at = excluded.created_at
	`, emb.NoteID, float32SliceToBytes(emb.Vector), emb.Model, emb.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	s.markDirty()
	return nil
}

// GetEmbedding retrieves a note's embedding.
func (s *Store) GetEmbedding(ctx context.Context, noteID string) (*domain.Embedding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, vector, model, created_at
		FROM embeddings WHERE document_id = ?
	`, noteID)

	var emb domain.Embedding
	var blob []byte
	if err := row.Scan(&emb.NoteID, &blob, &emb.Model, &emb.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}

	emb.Vector = bytesToFloat32Slice(blob)
	return &emb, nil
}

// ListEmbeddings returns all stored embeddings.
func (s *Store) ListEmbeddings(ctx context.Context) ([]domain.Embedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, vector, model, created_at
		FROM embeddings
	`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []domain.Embedding //nolint:prealloc // size unknown from query
	for rows.Next() {
		var emb domain.Embedding
		var blob []byte
		if err := rows.Scan(&emb.NoteID, &blob, &emb.Model, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		emb.Vector = bytesToFloat32Slice(blob)
		embeddings = append(embeddings, emb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return embeddings, nil
}

// DeleteEmbedding removes a note's embedding.
func (s *Store) DeleteEmbedding(ctx context.Context, noteID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", noteID)
	if err != nil {
		return fmt.Errorf("deleting embedding: %w", err)
	}
	s.markDirty()
	return nil
}

// ==================== Score Store ====================

// SaveScore upserts one pair score under canonical pair identity.
func (s *Store) SaveScore(ctx context.Context, score domain.PairScore) error {
	return s.SaveScores(ctx, []domain.PairScore{score})
}

// SaveScores upserts a batch of pair scores in one transaction.
func (s *Store) SaveScores(ctx context.Context, scores []domain.PairScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pair_scores (id_1, id_2, similarity_score, ai_score, model, reasoning, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id_1, id_2) DO UPDATE SET
			similarity_score = excluded.similarity_score,
			ai_score = excluded.ai_score,
			model = excluded.model,
			reasoning = excluded.reasoning,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	canonical := make([]domain.PairScore, len(scores))
	for i, score := range scores {
		score = score.Canonicalise()
		if score.ID1 == "" || score.ID2 == "" || score.ID1 == score.ID2 {
			return domain.ErrInvalidInput
		}
		canonical[i] = score

		if _, err := stmt.ExecContext(ctx, score.ID1, score.ID2, score.Similarity,
			score.AIScore, score.Model, score.Reasoning, score.UpdatedAt); err != nil {
			return fmt.Errorf("saving pair score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.mu.Lock()
	for _, score := range canonical {
		s.indexScoreLocked(score)
	}
	s.dirty = true
	s.mu.Unlock()
	return nil
}

// GetScore retrieves the score for a canonical pair from the index.
func (s *Store) GetScore(ctx context.Context, key domain.PairKey) (*domain.PairScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.scores[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &score, nil
}

// ScoresForNote returns all scores touching noteID, oriented so the
// queried note is ID1, filtered per filter and sorted by descending
// relevance. Served entirely from the in-memory index.
func (s *Store) ScoresForNote(ctx context.Context, noteID string, filter domain.ScoreFilter) ([]domain.PairScore, error) {
	s.mu.RLock()
	keys := s.byNote[noteID]
	oriented := make([]domain.PairScore, 0, len(keys))
	for key := range keys {
		oriented = append(oriented, s.scores[key].Oriented(noteID))
	}
	s.mu.RUnlock()

	filtered := oriented[:0]
	for _, score := range oriented {
		if score.Similarity < filter.MinSimilarity || score.AIScore < filter.MinAIScore {
			continue
		}
		filtered = append(filtered, score)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].AIScore != filtered[j].AIScore {
			return filtered[i].AIScore > filtered[j].AIScore
		}
		return filtered[i].ID2 < filtered[j].ID2
	})

	if filter.Limit > 0 && len(filtered) > filter.Limit {
		filtered = filtered[:filter.Limit]
	}
	return filtered, nil
}

// ==================== Link Ledger ====================

// LedgerTargets returns the current target ids for a source note.
func (s *Store) LedgerTargets(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_id FROM link_ledger WHERE source_id = ? ORDER BY target_id
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var targets []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		targets = append(targets, target)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger: %w", err)
	}
	return targets, nil
}

// ReplaceLedgerTargets rewrites a source note's ledger entries to
// exactly the given target set.
func (s *Store) ReplaceLedgerTargets(ctx context.Context, sourceID string, targetIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM link_ledger WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}

	now := time.Now().UTC()
	for _, target := range targetIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO link_ledger (source_id, target_id, inserted_at) VALUES (?, ?, ?)
		`, sourceID, target, now); err != nil {
			return fmt.Errorf("inserting ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	s.markDirty()
	return nil
}

// ListLedger returns all ledger entries.
func (s *Store) ListLedger(ctx context.Context) ([]domain.LinkEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, target_id, inserted_at FROM link_ledger ORDER BY source_id, target_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LinkEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.LinkEntry
		if err := rows.Scan(&entry.SourceID, &entry.TargetID, &entry.InsertedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger: %w", err)
	}
	return entries, nil
}

// ==================== Failure Log ====================

// RecordFailure appends a failure record. Re-recording the same id
// overwrites the previous record.
func (s *Store) RecordFailure(ctx context.Context, record domain.FailureRecord) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}

	batchJSON, err := json.Marshal(record.Batch)
	if err != nil {
		return fmt.Errorf("marshalling batch info: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO failure_log (id, timestamp, operation_type, batch_info_json, error_message, resolved)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timestamp = excluded.timestamp,
			operation_type = excluded.operation_type,
			batch_info_json = excluded.batch_info_json,
			error_message = excluded.error_message,
			resolved = excluded.resolved
	`, record.ID, record.Timestamp, string(record.Operation), string(batchJSON),
		record.ErrorMessage, boolToInt(record.Resolved))

	if err != nil {
		return fmt.Errorf("recording failure: %w", err)
	}
	s.markDirty()
	return nil
}

// UnresolvedFailures returns all records with resolved = false.
func (s *Store) UnresolvedFailures(ctx context.Context) ([]domain.FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, operation_type, batch_info_json, error_message, resolved
		FROM failure_log WHERE resolved = 0 ORDER BY timestamp
	`)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var records []domain.FailureRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.FailureRecord
		var op, batchJSON string
		var resolved int
		if err := rows.Scan(&record.ID, &record.Timestamp, &op, &batchJSON,
			&record.ErrorMessage, &resolved); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}

		record.Operation = domain.OperationType(op)
		record.Resolved = resolved != 0
		if err := json.Unmarshal([]byte(batchJSON), &record.Batch); err != nil {
			return nil, fmt.Errorf("unmarshalling batch info: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failures: %w", err)
	}
	return records, nil
}

// DeleteFailure removes a failure record by id.
func (s *Store) DeleteFailure(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM failure_log WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting failure: %w", err)
	}
	s.markDirty()
	return nil
}

// ==================== Maintenance ====================

// Stats aggregates cache contents for reporting.
func (s *Store) Stats(ctx context.Context) (*domain.CacheStats, error) {
	stats := &domain.CacheStats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Notes},
		{"SELECT COUNT(*) FROM embeddings", &stats.Embeddings},
		{"SELECT COUNT(*) FROM pair_scores", &stats.ScoredPairs},
		{"SELECT COUNT(*) FROM link_ledger", &stats.LedgerEntries},
		{"SELECT COUNT(*) FROM failure_log WHERE resolved = 0", &stats.UnresolvedFailures},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}
	return stats, nil
}

// CleanOrphans deletes embeddings, scores and ledger entries whose
// notes are gone. The schema has no cross-table cascade, so
// consistency is maintained here.
func (s *Store) CleanOrphans(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM embeddings WHERE document_id NOT IN (SELECT id FROM documents)",
		`DELETE FROM pair_scores
			WHERE id_1 NOT IN (SELECT id FROM documents)
			OR id_2 NOT IN (SELECT id FROM documents)`,
		`DELETE FROM link_ledger
			WHERE source_id NOT IN (SELECT id FROM documents)
			OR target_id NOT IN (SELECT id FROM documents)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("cleaning orphans: %w", err)
		}
	}

	s.mu.Lock()
	s.scores = make(map[domain.PairKey]domain.PairScore)
	s.byNote = make(map[string]map[domain.PairKey]struct{})
	s.dirty = true
	s.mu.Unlock()

	return s.loadScoreIndex(ctx)
}

// Clear drops all cached rows. The only operation that physically
// deletes notes.
func (s *Store) Clear(ctx context.Context) error {
	for _, table := range []string{"failure_log", "link_ledger", "pair_scores", "embeddings", "documents"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	s.mu.Lock()
	s.scores = make(map[domain.PairKey]domain.PairScore)
	s.byNote = make(map[string]map[domain.PairKey]struct{})
	s.dirty = true
	s.mu.Unlock()
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanNote scans a single note row.
func scanNote(row *sql.Row) (*domain.Note, error) {
	var note domain.Note
	var tagsJSON sql.NullString
	var embeddedAt sql.NullTime

	if err := row.Scan(&note.ID, &note.Path, &note.ContentHash, &note.CreatedAt,
		&note.ModifiedAt, &note.Title, &tagsJSON, &embeddedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning note: %w", err)
	}

	if err := applyNoteJSON(&note, tagsJSON, embeddedAt); err != nil {
		return nil, err
	}
	return &note, nil
}

// scanNoteRows scans a note from *sql.Rows.
func scanNoteRows(rows *sql.Rows) (*domain.Note, error) {
	var note domain.Note
	var tagsJSON sql.NullString
	var embeddedAt sql.NullTime

	if err := rows.Scan(&note.ID, &note.Path, &note.ContentHash, &note.CreatedAt,
		&note.ModifiedAt, &note.Title, &tagsJSON, &embeddedAt); err != nil {
		return nil, fmt.Errorf("scanning note: %w", err)
	}

	if err := applyNoteJSON(&note, tagsJSON, embeddedAt); err != nil {
		return nil, err
	}
	return &note, nil
}

func applyNoteJSON(note *domain.Note, tagsJSON sql.NullString, embeddedAt sql.NullTime) error {
	if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &note.Tags); err != nil {
			return fmt.Errorf("unmarshalling tags: %w", err)
		}
	}
	if embeddedAt.Valid {
		note.EmbeddingUpdatedAt = embeddedAt.Time
	}
	return nil
}

// scanScore scans a pair score from *sql.Rows.
func scanScore(rows *sql.Rows) (*domain.PairScore, error) {
	var score domain.PairScore
	var reasoning sql.NullString
	if err := rows.Scan(&score.ID1, &score.ID2, &score.Similarity, &score.AIScore,
		&score.Model, &reasoning, &score.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scanning pair score: %w", err)
	}
	score.Reasoning = reasoning.String
	return &score, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
