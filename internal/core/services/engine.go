package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driving"
	"github.com/custodia-labs/relink-cli/internal/logger"
)

// Ensure LinkRunner implements the interface.
var _ driving.LinkEngine = (*LinkRunner)(nil)

// neutralScore is the fallback relevance when a provider returns
// fewer verdicts than pairs sent. Defaulting keeps the run alive on a
// malformed response instead of crashing it.
const neutralScore = 5

// LinkRunner coordinates linking runs: vault scan, embedding refresh,
// candidate generation, batched remote scoring with write-through
// persistence, and ledger-based link reconciliation.
//
// Exactly one run may be active at a time. Batches run strictly
// sequentially to respect provider rate limits and because failure
// bookkeeping assumes one batch persists before the next starts.
type LinkRunner struct {
	cache      driven.CacheStore
	vault      driven.Vault
	gateway    driven.ModelGateway
	prompts    driven.PromptStore
	settings   domain.Settings
	journal    *FailureJournal
	reconciler *Reconciler

	// now is swappable for tests.
	now func() time.Time

	mu      sync.RWMutex
	running bool
	status  driving.RunStatus
}

// NewLinkRunner creates a linking engine. The prompt store is
// optional; when nil, gateway adapters use built-in prompts.
func NewLinkRunner(
	cache driven.CacheStore,
	vault driven.Vault,
	gateway driven.ModelGateway,
	prompts driven.PromptStore,
	settings domain.Settings,
) *LinkRunner {
	return &LinkRunner{
		cache:      cache,
		vault:      vault,
		gateway:    gateway,
		prompts:    prompts,
		settings:   settings,
		journal:    NewFailureJournal(cache),
		reconciler: NewReconciler(vault, cache),
		now:        time.Now,
		status:     driving.RunStatus{Phase: driving.PhaseIdle},
	}
}

// vaultState is the in-memory view of the vault built by one scan,
// shared across the run's phases so notes are read from disk once.
type vaultState struct {
	// notes maps id to cached note metadata, live notes only.
	notes map[string]domain.Note

	// bodies maps id to the note's hashable body.
	bodies map[string]string

	// changed lists ids that are new or whose content hash moved.
	changed []string
}

// liveIDs returns note ids in deterministic order.
func (s *vaultState) liveIDs() []string {
	ids := make([]string, 0, len(s.notes))
	for id := range s.notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run executes a linking pass. Smart mode (the default) processes
// only changed notes and skips fresh pair scores between unchanged
// ones; force mode regenerates candidates from every embedded pair
// with no skip.
func (r *LinkRunner) Run(ctx context.Context, opts driving.RunOptions) (*driving.RunReport, error) {
	if err := r.begin(); err != nil {
		return nil, err
	}
	defer r.end()

	start := r.now()
	report := &driving.RunReport{}

	r.setPhase(driving.PhaseScanning)
	st, err := r.syncVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	report.NotesScanned = len(st.notes)

	r.setPhase(driving.PhaseEmbedding)
	if err := r.refreshEmbeddings(ctx, st, report); err != nil {
		return nil, err
	}

	r.setPhase(driving.PhaseCandidates)
	candidates, skipped, err := r.generateCandidates(ctx, st, opts.Force)
	if err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}
	report.CandidatePairs = len(candidates) + skipped
	report.PairsSkipped = skipped

	r.setPhase(driving.PhaseScoring)
	if err := r.scoreBatches(ctx, st, candidates, report); err != nil {
		return report, err
	}

	r.setPhase(driving.PhaseReconcile)
	if err := r.reconcileAll(ctx, st, report); err != nil {
		return report, err
	}

	if err := r.cache.Flush(ctx); err != nil {
		return report, fmt.Errorf("flush cache: %w", err)
	}

	r.setPhase(driving.PhaseDone)
	report.Duration = r.now().Sub(start)

	if report.BatchesFailed > 0 {
		logger.Warn("%d batches failed; run 'relink retry' to reprocess them", report.BatchesFailed)
	}
	logger.Info("Run complete: %d scored, %d skipped, +%d/-%d links",
		report.PairsScored, report.PairsSkipped, report.LinksAdded, report.LinksRemoved)
	return report, nil
}

// RetryFailures re-runs exactly the item keys recorded in the failure
// journal. Journaled pairs are re-scored regardless of how fresh their
// previous score is.
func (r *LinkRunner) RetryFailures(ctx context.Context) (*driving.RunReport, error) {
	if err := r.begin(); err != nil {
		return nil, err
	}
	defer r.end()

	start := r.now()
	report := &driving.RunReport{}

	records, err := r.journal.Unresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	if len(records) == 0 {
		r.setPhase(driving.PhaseDone)
		return report, nil
	}

	r.setPhase(driving.PhaseScanning)
	st, err := r.syncVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	report.NotesScanned = len(st.notes)

	r.setPhase(driving.PhaseEmbedding)
	if err := r.refreshEmbeddings(ctx, st, report); err != nil {
		return nil, err
	}

	pairKeys, tagIDs := splitFailureKeys(records)

	r.setPhase(driving.PhaseCandidates)
	candidates, err := r.candidatesForPairs(ctx, st, pairKeys)
	if err != nil {
		return nil, fmt.Errorf("rebuild candidates: %w", err)
	}
	report.CandidatePairs = len(candidates)

	r.setPhase(driving.PhaseScoring)
	if err := r.scoreBatches(ctx, st, candidates, report); err != nil {
		return report, err
	}

	if len(tagIDs) > 0 {
		r.setPhase(driving.PhaseTagging)
		tagReport := &driving.TagReport{}
		if err := r.tagNotes(ctx, st, tagIDs, tagReport); err != nil {
			return report, err
		}
		report.BatchesFailed += tagReport.BatchesFailed
	}

	r.setPhase(driving.PhaseReconcile)
	if err := r.reconcileAll(ctx, st, report); err != nil {
		return report, err
	}

	if err := r.cache.Flush(ctx); err != nil {
		return report, fmt.Errorf("flush cache: %w", err)
	}

	r.setPhase(driving.PhaseDone)
	report.Duration = r.now().Sub(start)
	return report, nil
}

// GenerateTags runs the batched tag pipeline over every live note.
func (r *LinkRunner) GenerateTags(ctx context.Context) (*driving.TagReport, error) {
	if err := r.begin(); err != nil {
		return nil, err
	}
	defer r.end()

	start := r.now()
	report := &driving.TagReport{}

	r.setPhase(driving.PhaseScanning)
	st, err := r.syncVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}

	r.setPhase(driving.PhaseTagging)
	if err := r.tagNotes(ctx, st, st.liveIDs(), report); err != nil {
		return report, err
	}

	if err := r.cache.Flush(ctx); err != nil {
		return report, fmt.Errorf("flush cache: %w", err)
	}

	r.setPhase(driving.PhaseDone)
	report.Duration = r.now().Sub(start)
	return report, nil
}

// Status returns a snapshot of engine progress.
func (r *LinkRunner) Status() *driving.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := r.status
	status.Running = r.running
	return &status
}

// begin acquires the run guard. Concurrent runs would violate the
// cache store's single-writer invariant.
func (r *LinkRunner) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return domain.ErrRunInProgress
	}
	if r.gateway == nil {
		return domain.ErrGatewayUnavailable
	}
	r.running = true
	r.status = driving.RunStatus{Running: true, Phase: driving.PhaseIdle}
	return nil
}

func (r *LinkRunner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.status.Running = false
}

func (r *LinkRunner) setPhase(phase driving.RunPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Phase = phase
	r.status.BatchesDone = 0
	r.status.BatchesTotal = 0
}

func (r *LinkRunner) setBatchProgress(done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.BatchesDone = done
	r.status.BatchesTotal = total
}

// checkCancelled polls for cooperative cancellation between batches.
// Already-persisted batches remain valid and are not rolled back.
func (r *LinkRunner) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		r.setPhase(driving.PhaseCancelled)
		return fmt.Errorf("%w: %v", domain.ErrRunCancelled, err)
	}
	return nil
}

// syncVault scans the vault and reconciles the note table against it:
// new files get an id, changed files get a fresh content hash, and
// the ids of both are collected as the run's changed set. Cached notes
// whose file is gone are excluded from the run but never deleted
// outside an explicit cache clear.
func (r *LinkRunner) syncVault(ctx context.Context) (*vaultState, error) {
	files, err := r.vault.Scan(ctx)
	if err != nil {
		return nil, err
	}

	st := &vaultState{
		notes:  make(map[string]domain.Note, len(files)),
		bodies: make(map[string]string, len(files)),
	}

	for _, file := range files {
		content, err := r.vault.Read(ctx, file.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Path, err)
		}
		hash := domain.HashContent(content)

		note, err := r.cache.GetNoteByPath(ctx, file.Path)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			now := r.now().UTC()
			note = &domain.Note{
				ID:          uuid.NewString(),
				Path:        file.Path,
				Title:       file.Title,
				ContentHash: hash,
				Tags:        domain.FrontMatterTags(content),
				CreatedAt:   now,
				ModifiedAt:  file.ModifiedAt,
			}
			if err := r.cache.SaveNote(ctx, *note); err != nil {
				return nil, fmt.Errorf("save note %s: %w", file.Path, err)
			}
			st.changed = append(st.changed, note.ID)
			logger.Debug("Discovered %s", file.Path)

		case err != nil:
			return nil, fmt.Errorf("lookup %s: %w", file.Path, err)

		case note.ContentHash != hash:
			note.ContentHash = hash
			note.Title = file.Title
			note.ModifiedAt = file.ModifiedAt
			note.Tags = domain.FrontMatterTags(content)
			if err := r.cache.SaveNote(ctx, *note); err != nil {
				return nil, fmt.Errorf("save note %s: %w", file.Path, err)
			}
			st.changed = append(st.changed, note.ID)
			logger.Debug("Changed %s", file.Path)
		}

		st.notes[note.ID] = *note
		st.bodies[note.ID] = domain.HashableBody(content)
	}

	logger.Info("Scanned %d notes, %d changed", len(st.notes), len(st.changed))
	return st, nil
}

// refreshEmbeddings recomputes embeddings for changed notes, plus any
// live note that has never been embedded. Embedding failures abort
// the run: without vectors there is nothing to score.
func (r *LinkRunner) refreshEmbeddings(ctx context.Context, st *vaultState, report *driving.RunReport) error {
	pending := make([]string, 0, len(st.changed))
	seen := make(map[string]struct{}, len(st.changed))
	for _, id := range st.changed {
		pending = append(pending, id)
		seen[id] = struct{}{}
	}
	for _, id := range st.liveIDs() {
		if _, ok := seen[id]; ok {
			continue
		}
		if st.notes[id].EmbeddingUpdatedAt.IsZero() {
			// First-time embedding counts as a change: a prior run may
			// have persisted the content hash and then crashed before
			// embedding, and the pairs still need candidates.
			pending = append(pending, id)
			st.changed = append(st.changed, id)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Strings(pending)

	batchSize := r.settings.Linking.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(pending); start += batchSize {
		if err := r.checkCancelled(ctx); err != nil {
			return err
		}
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		ids := pending[start:end]

		texts := make([]string, len(ids))
		for i, id := range ids {
			texts[i] = truncate(st.bodies[id], r.settings.Linking.EmbedCharLimit)
		}

		vectors, err := r.gateway.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed notes: %w", err)
		}
		if len(vectors) != len(ids) {
			return fmt.Errorf("embed notes: got %d vectors for %d texts", len(vectors), len(ids))
		}

		now := r.now().UTC()
		for i, id := range ids {
			if err := r.cache.SaveEmbedding(ctx, domain.Embedding{
				NoteID:    id,
				Vector:    vectors[i],
				Model:     r.gateway.EmbeddingModelName(),
				CreatedAt: now,
			}); err != nil {
				return fmt.Errorf("save embedding %s: %w", id, err)
			}
			note := st.notes[id]
			note.EmbeddingUpdatedAt = now
			if err := r.cache.SaveNote(ctx, note); err != nil {
				return fmt.Errorf("save note %s: %w", note.Path, err)
			}
			st.notes[id] = note
			report.NotesEmbedded++
		}

		if err := r.cache.Flush(ctx); err != nil {
			return fmt.Errorf("flush cache: %w", err)
		}
	}
	return nil
}

// generateCandidates builds the scoring work set. Force mode pairs
// every embedded note; smart mode pairs changed notes against all
// others and skips pairs with a fresh score, except that a changed
// member invalidates the pair's existing score. Journaled failures
// are always unioned into the work set, bypassing the freshness skip.
func (r *LinkRunner) generateCandidates(
	ctx context.Context,
	st *vaultState,
	force bool,
) ([]Candidate, int, error) {
	embeddings, err := r.loadEmbeddings(ctx, st)
	if err != nil {
		return nil, 0, err
	}

	threshold := r.settings.Linking.SimilarityThreshold

	var candidates []Candidate
	if force {
		candidates, err = fullCandidates(embeddings, threshold)
	} else {
		candidates, err = incrementalCandidates(st.changed, embeddings, threshold)
	}
	if err != nil {
		return nil, 0, err
	}

	forced, err := r.journaledPairKeys(ctx)
	if err != nil {
		return nil, 0, err
	}
	candidates = r.unionForced(candidates, forced, embeddings)

	if force {
		return candidates, 0, nil
	}

	existing := make(map[domain.PairKey]domain.PairScore, len(candidates))
	for _, c := range candidates {
		score, err := r.cache.GetScore(ctx, c.Key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("get score %s: %w", c.Key, err)
		}
		existing[c.Key] = *score
	}

	changedSet := make(map[string]struct{}, len(st.changed))
	for _, id := range st.changed {
		changedSet[id] = struct{}{}
	}
	keep, skipped := filterFresh(candidates, existing, changedSet, forced, r.now(), r.settings.Linking.FreshnessWindow)
	return keep, skipped, nil
}

// candidatesForPairs rebuilds candidates for explicit pair keys from
// the failure journal. Pairs whose members are gone or unembedded are
// dropped; their journal entries stay until a covering batch succeeds.
func (r *LinkRunner) candidatesForPairs(
	ctx context.Context,
	st *vaultState,
	keys []domain.PairKey,
) ([]Candidate, error) {
	embeddings, err := r.loadEmbeddings(ctx, st)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, key := range keys {
		a, okA := embeddings[key.ID1]
		b, okB := embeddings[key.ID2]
		if !okA || !okB {
			logger.Debug("Skipping journaled pair %s: missing embedding", key)
			continue
		}
		sim, err := domain.CosineSimilarity(a, b)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{Key: key, Similarity: sim})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Key.String() < candidates[j].Key.String()
	})
	return candidates, nil
}

// loadEmbeddings returns vectors for live notes only.
func (r *LinkRunner) loadEmbeddings(ctx context.Context, st *vaultState) (map[string][]float32, error) {
	all, err := r.cache.ListEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	vectors := make(map[string][]float32, len(all))
	for _, emb := range all {
		if _, live := st.notes[emb.NoteID]; live {
			vectors[emb.NoteID] = emb.Vector
		}
	}
	return vectors, nil
}

// journaledPairKeys returns the pair keys of unresolved scoring
// failures as a forced work set.
func (r *LinkRunner) journaledPairKeys(ctx context.Context) (map[string]struct{}, error) {
	records, err := r.journal.Unresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	forced := make(map[string]struct{})
	for _, record := range records {
		if record.Operation != domain.OperationScoring {
			continue
		}
		for _, key := range record.Batch.ItemKeys {
			forced[key] = struct{}{}
		}
	}
	return forced, nil
}

// unionForced adds journaled pairs missing from candidates, recomputing
// their similarity locally. Pairs without embeddings are dropped here
// and revisited once their notes are re-embedded.
func (r *LinkRunner) unionForced(
	candidates []Candidate,
	forced map[string]struct{},
	embeddings map[string][]float32,
) []Candidate {
	present := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		present[c.Key.String()] = struct{}{}
	}

	extra := make([]string, 0, len(forced))
	for key := range forced {
		if _, ok := present[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)

	for _, raw := range extra {
		key, ok := parsePairKey(raw)
		if !ok {
			continue
		}
		a, okA := embeddings[key.ID1]
		b, okB := embeddings[key.ID2]
		if !okA || !okB {
			continue
		}
		sim, err := domain.CosineSimilarity(a, b)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Key: key, Similarity: sim})
	}
	return candidates
}

// scoreBatches drives the remote scoring loop. Batches are strictly
// sequential; a failed batch is journaled and never fatal, while a
// configuration error aborts the run immediately since retrying
// cannot help.
func (r *LinkRunner) scoreBatches(
	ctx context.Context,
	st *vaultState,
	candidates []Candidate,
	report *driving.RunReport,
) error {
	batches := partitionCandidates(candidates, r.settings.Linking.BatchSize)
	r.setBatchProgress(0, len(batches))

	for i, batch := range batches {
		if err := r.checkCancelled(ctx); err != nil {
			return err
		}

		if err := r.scoreOneBatch(ctx, st, batch, i+1, len(batches), report); err != nil {
			if domain.IsConfiguration(err) {
				return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
			}
			report.BatchesFailed++
			info := batchInfoFor(st, batch, i+1, len(batches))
			if jerr := r.journal.Record(ctx, domain.OperationScoring, info, err); jerr != nil {
				logger.Warn("Journal write failed: %v", jerr)
			}
			logger.Warn("Scoring batch %d/%d failed: %v", i+1, len(batches), err)
		}

		r.setBatchProgress(i+1, len(batches))
	}
	return nil
}

// scoreOneBatch sends one batch to the gateway, merges verdicts with
// a neutral default for any missing pair, persists immediately, and
// resolves journal entries the batch covers.
func (r *LinkRunner) scoreOneBatch(
	ctx context.Context,
	st *vaultState,
	batch []Candidate,
	ordinal, total int,
	report *driving.RunReport,
) error {
	limit := r.settings.Linking.ScoreCharLimit
	pairs := make([]driven.ScorePair, len(batch))
	for i, c := range batch {
		n1 := st.notes[c.Key.ID1]
		n2 := st.notes[c.Key.ID2]
		pairs[i] = driven.ScorePair{
			ID1:        c.Key.ID1,
			ID2:        c.Key.ID2,
			Title1:     n1.Title,
			Title2:     n2.Title,
			Content1:   truncate(st.bodies[c.Key.ID1], limit),
			Content2:   truncate(st.bodies[c.Key.ID2], limit),
			Similarity: c.Similarity,
		}
	}

	verdicts, err := r.gateway.ScorePairs(ctx, pairs, r.loadPrompt(driven.PromptScorePairs))
	if err != nil {
		return err
	}

	byKey := make(map[domain.PairKey]driven.PairVerdict, len(verdicts))
	for _, v := range verdicts {
		byKey[domain.NewPairKey(v.ID1, v.ID2)] = v
	}
	if len(verdicts) != len(pairs) {
		logger.Warn("Batch %d/%d: provider returned %d scores for %d pairs, padding with neutral scores",
			ordinal, total, len(verdicts), len(pairs))
	}

	now := r.now().UTC()
	scores := make([]domain.PairScore, len(batch))
	for i, c := range batch {
		score := domain.PairScore{
			ID1:        c.Key.ID1,
			ID2:        c.Key.ID2,
			Similarity: c.Similarity,
			Model:      r.gateway.ModelName(),
			UpdatedAt:  now,
		}
		if v, ok := byKey[c.Key]; ok {
			score.AIScore = clampScore(v.Score)
			score.Reasoning = v.Reasoning
		} else {
			score.AIScore = neutralScore
			score.Reasoning = fmt.Sprintf("score defaulted: provider returned %d results for %d pairs",
				len(verdicts), len(pairs))
		}
		scores[i] = score
	}

	if err := r.cache.SaveScores(ctx, scores); err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	if err := r.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	report.PairsScored += len(scores)

	succeeded := make(map[string]struct{}, len(batch))
	for _, c := range batch {
		succeeded[c.Key.String()] = struct{}{}
	}
	if _, err := r.journal.ResolveCovered(ctx, succeeded); err != nil {
		logger.Warn("Journal resolution failed: %v", err)
	}
	return nil
}

// reconcileAll diffs every live note's desired link set against the
// ledger and applies the edits. Per-note failures are logged and do
// not stop the pass.
func (r *LinkRunner) reconcileAll(ctx context.Context, st *vaultState, report *driving.RunReport) error {
	linking := r.settings.Linking
	for _, id := range st.liveIDs() {
		if err := r.checkCancelled(ctx); err != nil {
			return err
		}

		scores, err := r.cache.ScoresForNote(ctx, id, domain.ScoreFilter{})
		if err != nil {
			return fmt.Errorf("scores for %s: %w", id, err)
		}

		desired := DesiredTargets(id, scores, linking)
		added, removed, err := r.reconciler.Reconcile(ctx, st.notes[id], desired)
		if err != nil {
			logger.Warn("Reconcile %s failed: %v", st.notes[id].Path, err)
			continue
		}
		report.LinksAdded += added
		report.LinksRemoved += removed
	}
	return nil
}

// tagNotes runs the batched tag pipeline for the given note ids.
// Cached tags are committed only after the vault write succeeds;
// notes whose write fails are journaled so retry reprocesses them.
func (r *LinkRunner) tagNotes(
	ctx context.Context,
	st *vaultState,
	ids []string,
	report *driving.TagReport,
) error {
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := st.notes[id]; ok {
			live = append(live, id)
		}
	}

	batchSize := r.settings.Linking.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	total := (len(live) + batchSize - 1) / batchSize
	r.setBatchProgress(0, total)

	for start, ordinal := 0, 1; start < len(live); start, ordinal = start+batchSize, ordinal+1 {
		if err := r.checkCancelled(ctx); err != nil {
			return err
		}
		end := start + batchSize
		if end > len(live) {
			end = len(live)
		}
		batch := live[start:end]

		if err := r.tagOneBatch(ctx, st, batch, ordinal, total, report); err != nil {
			if domain.IsConfiguration(err) {
				return fmt.Errorf("tag batch %d/%d: %w", ordinal, total, err)
			}
			report.BatchesFailed++
			info := domain.BatchInfo{Ordinal: ordinal, Total: total, ItemKeys: batch, Labels: pathsOf(st, batch)}
			if jerr := r.journal.Record(ctx, domain.OperationTagging, info, err); jerr != nil {
				logger.Warn("Journal write failed: %v", jerr)
			}
			logger.Warn("Tagging batch %d/%d failed: %v", ordinal, total, err)
		}

		r.setBatchProgress(ordinal, total)
	}
	return nil
}

// tagOneBatch requests tags for one batch of notes and writes them
// back into each note's front matter.
func (r *LinkRunner) tagOneBatch(
	ctx context.Context,
	st *vaultState,
	ids []string,
	ordinal, total int,
	report *driving.TagReport,
) error {
	limit := r.settings.Linking.ScoreCharLimit
	requests := make([]driven.TagRequest, len(ids))
	for i, id := range ids {
		note := st.notes[id]
		requests[i] = driven.TagRequest{
			ID:           id,
			Title:        note.Title,
			Content:      truncate(st.bodies[id], limit),
			ExistingTags: note.Tags,
		}
	}

	suggestions, err := r.gateway.SuggestTags(ctx, requests,
		r.loadPrompt(driven.PromptSuggestTags),
		r.settings.Linking.MinTags, r.settings.Linking.MaxTags)
	if err != nil {
		return err
	}

	var failed []string
	var lastFailure error
	for _, suggestion := range suggestions {
		note, ok := st.notes[suggestion.ID]
		if !ok || len(suggestion.Tags) == 0 {
			continue
		}

		content, err := r.vault.Read(ctx, note.Path)
		if err != nil {
			logger.Warn("Read %s for tagging failed: %v", note.Path, err)
			failed = append(failed, suggestion.ID)
			lastFailure = err
			continue
		}
		updated, err := domain.UpsertFrontMatterTags(content, suggestion.Tags)
		if err != nil {
			logger.Warn("Front matter rewrite for %s failed: %v", note.Path, err)
			failed = append(failed, suggestion.ID)
			lastFailure = err
			continue
		}
		if err := r.vault.Write(ctx, note.Path, updated); err != nil {
			logger.Warn("Write %s failed, tags not applied: %v", note.Path, err)
			failed = append(failed, suggestion.ID)
			lastFailure = err
			continue
		}

		// The cached note is committed only after the vault write
		// landed. A crash between write and commit re-tags the note,
		// which is idempotent.
		note.Tags = suggestion.Tags
		note.ContentHash = domain.HashContent(updated)
		note.ModifiedAt = r.now().UTC()
		if err := r.cache.SaveNote(ctx, note); err != nil {
			return fmt.Errorf("commit tags for %s: %w", note.Path, err)
		}
		st.notes[suggestion.ID] = note
		report.NotesTagged++
	}

	if len(failed) > 0 {
		report.BatchesFailed++
		info := domain.BatchInfo{Ordinal: ordinal, Total: total, ItemKeys: failed, Labels: pathsOf(st, failed)}
		if err := r.journal.Record(ctx, domain.OperationTagging, info, lastFailure); err != nil {
			logger.Warn("Journal write failed: %v", err)
		}
	}

	if err := r.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}

	failedSet := make(map[string]struct{}, len(failed))
	for _, id := range failed {
		failedSet[id] = struct{}{}
	}
	succeeded := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, bad := failedSet[id]; !bad {
			succeeded[id] = struct{}{}
		}
	}
	if _, err := r.journal.ResolveCovered(ctx, succeeded); err != nil {
		logger.Warn("Journal resolution failed: %v", err)
	}
	return nil
}

// loadPrompt fetches a prompt override, or "" for the adapter default.
func (r *LinkRunner) loadPrompt(name string) string {
	if r.prompts == nil {
		return ""
	}
	prompt, err := r.prompts.Load(name)
	if err != nil {
		return ""
	}
	return prompt
}

// batchInfoFor builds the journal descriptor for a scoring batch,
// labelling members with note paths for operator readability.
func batchInfoFor(st *vaultState, batch []Candidate, ordinal, total int) domain.BatchInfo {
	keys := make([]string, len(batch))
	labels := make([]string, len(batch))
	for i, c := range batch {
		keys[i] = c.Key.String()
		labels[i] = st.notes[c.Key.ID1].Path + " <-> " + st.notes[c.Key.ID2].Path
	}
	return domain.BatchInfo{Ordinal: ordinal, Total: total, ItemKeys: keys, Labels: labels}
}

// splitFailureKeys partitions journal records into scoring pair keys
// and tagging note ids.
func splitFailureKeys(records []domain.FailureRecord) ([]domain.PairKey, []string) {
	pairSeen := make(map[domain.PairKey]struct{})
	tagSeen := make(map[string]struct{})
	var pairs []domain.PairKey
	var tags []string

	for _, record := range records {
		for _, raw := range record.Batch.ItemKeys {
			switch record.Operation {
			case domain.OperationScoring:
				key, ok := parsePairKey(raw)
				if !ok {
					continue
				}
				if _, dup := pairSeen[key]; !dup {
					pairSeen[key] = struct{}{}
					pairs = append(pairs, key)
				}
			case domain.OperationTagging:
				if _, dup := tagSeen[raw]; !dup {
					tagSeen[raw] = struct{}{}
					tags = append(tags, raw)
				}
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })
	sort.Strings(tags)
	return pairs, tags
}

// parsePairKey reverses domain.PairKey.String.
func parsePairKey(raw string) (domain.PairKey, bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '|' {
			return domain.NewPairKey(raw[:i], raw[i+1:]), true
		}
	}
	return domain.PairKey{}, false
}

func pathsOf(st *vaultState, ids []string) []string {
	paths := make([]string, len(ids))
	for i, id := range ids {
		paths[i] = st.notes[id].Path
	}
	return paths
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// truncate cuts s to at most limit characters, never splitting a
// multibyte rune. Zero limit means no cap.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
