package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/relink-cli/internal/logger"
)

// Reconciler derives each note's desired outbound link set from scored
// pairs and rewrites the auto-managed link region to match, using the
// ledger to compute the minimal edit rather than re-parsing link text.
type Reconciler struct {
	vault driven.Vault
	cache driven.CacheStore
}

// NewReconciler creates a reconciler over a vault and cache store.
func NewReconciler(vault driven.Vault, cache driven.CacheStore) *Reconciler {
	return &Reconciler{vault: vault, cache: cache}
}

// FindBestLinks returns the target ids a note should link to, ordered
// by descending model score. Only pairs where noteID is the first
// member participate. Ties keep their original order (stable sort)
// and the result is capped at maxLinks.
func FindBestLinks(noteID string, scores []domain.PairScore, maxLinks int) []string {
	var mine []domain.PairScore
	for _, s := range scores {
		if s.ID1 == noteID {
			mine = append(mine, s)
		}
	}

	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].AIScore > mine[j].AIScore
	})

	if maxLinks > 0 && len(mine) > maxLinks {
		mine = mine[:maxLinks]
	}

	targets := make([]string, len(mine))
	for i, s := range mine {
		targets[i] = s.ID2
	}
	return targets
}

// DesiredTargets applies both thresholds (similarity AND model score)
// before selecting best links. The result feeds the ledger diff.
func DesiredTargets(noteID string, scores []domain.PairScore, linking domain.LinkingSettings) []string {
	var qualified []domain.PairScore
	for _, s := range scores {
		if s.Similarity >= linking.SimilarityThreshold && s.AIScore >= linking.AIScoreThreshold {
			qualified = append(qualified, s)
		}
	}
	return FindBestLinks(noteID, qualified, linking.MaxLinksPerNote)
}

// Reconcile diffs the desired target set against the ledger and
// applies the minimal edit to the note's auto-managed link region.
//
// Notes without a link marker are never written: the operation is a
// no-op returning zero counts, since there is no designated region.
// Re-running with the same desired set yields {0, 0}.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	note domain.Note,
	desired []string,
) (added, removed int, err error) {
	content, err := r.vault.Read(ctx, note.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", note.Path, err)
	}

	if _, _, found := domain.SplitAtMarker(content); !found {
		logger.Debug("No link marker in %s, skipping", note.Path)
		return 0, 0, nil
	}

	current, err := r.cache.LedgerTargets(ctx, note.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("ledger targets for %s: %w", note.ID, err)
	}

	currentSet := toSet(current)
	desiredSet := toSet(desired)
	for _, id := range desired {
		if _, ok := currentSet[id]; !ok {
			added++
		}
	}
	for _, id := range current {
		if _, ok := desiredSet[id]; !ok {
			removed++
		}
	}

	lines := make([]string, 0, len(desired))
	for _, targetID := range desired {
		lines = append(lines, domain.FormatWikiLink(r.displayName(ctx, targetID)))
	}

	updated, ok := domain.ReplaceLinkRegion(content, lines)
	if !ok {
		return 0, 0, nil
	}
	if updated != content {
		if err := r.vault.Write(ctx, note.Path, updated); err != nil {
			return 0, 0, fmt.Errorf("write %s: %w", note.Path, err)
		}
	}

	if err := r.cache.ReplaceLedgerTargets(ctx, note.ID, desired); err != nil {
		return 0, 0, fmt.Errorf("rewrite ledger for %s: %w", note.ID, err)
	}

	return added, removed, nil
}

// displayName resolves a target note's short display name, falling
// back to a path-derived name when the note cannot be resolved.
func (r *Reconciler) displayName(ctx context.Context, targetID string) string {
	note, err := r.cache.GetNote(ctx, targetID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Resolve %s: %v", targetID, err)
		}
		return domain.DisplayNameFromPath(targetID)
	}
	if note.Title != "" {
		return note.Title
	}
	return domain.DisplayNameFromPath(note.Path)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
