package services

import (
	"sort"
	"time"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
)

// Candidate is a note pair selected for remote scoring, with the
// locally computed similarity that qualified it.
type Candidate struct {
	Key        domain.PairKey
	Similarity float64
}

// fullCandidates computes similarity for every unordered pair of
// embedded notes and keeps pairs at or above threshold. Pairs are
// deduplicated through their canonical key and returned in a
// deterministic order.
func fullCandidates(embeddings map[string][]float32, threshold float64) ([]Candidate, error) {
	ids := sortedIDs(embeddings)

	var candidates []Candidate
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			sim, err := domain.CosineSimilarity(embeddings[ids[i]], embeddings[ids[j]])
			if err != nil {
				return nil, err
			}
			if sim >= threshold {
				candidates = append(candidates, Candidate{
					Key:        domain.NewPairKey(ids[i], ids[j]),
					Similarity: sim,
				})
			}
		}
	}
	return candidates, nil
}

// incrementalCandidates computes similarity only between each changed
// note and every other embedded note. Changed-changed pairs are still
// covered (each changed id is compared against all others); the
// canonical key set prevents scoring them twice.
func incrementalCandidates(
	changed []string,
	embeddings map[string][]float32,
	threshold float64,
) ([]Candidate, error) {
	ids := sortedIDs(embeddings)
	changedSet := make(map[string]struct{}, len(changed))
	for _, id := range changed {
		changedSet[id] = struct{}{}
	}

	seen := make(map[domain.PairKey]struct{})
	var candidates []Candidate
	for _, changedID := range changed {
		vec, ok := embeddings[changedID]
		if !ok {
			continue
		}
		for _, otherID := range ids {
			if otherID == changedID {
				continue
			}
			key := domain.NewPairKey(changedID, otherID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			sim, err := domain.CosineSimilarity(vec, embeddings[otherID])
			if err != nil {
				return nil, err
			}
			if sim >= threshold {
				candidates = append(candidates, Candidate{Key: key, Similarity: sim})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Key.String() < candidates[j].Key.String()
	})
	return candidates, nil
}

// filterFresh drops candidates whose existing score is younger than
// window (smart-mode skip). A pair is kept regardless of score age
// when either member is in changed (a content change invalidates the
// pair's dependent scores) or when its key is in forced (journaled
// failures must be re-scored).
func filterFresh(
	candidates []Candidate,
	existing map[domain.PairKey]domain.PairScore,
	changed map[string]struct{},
	forced map[string]struct{},
	now time.Time,
	window time.Duration,
) (keep []Candidate, skipped int) {
	for _, c := range candidates {
		if _, mustScore := forced[c.Key.String()]; mustScore {
			keep = append(keep, c)
			continue
		}
		_, left := changed[c.Key.ID1]
		_, right := changed[c.Key.ID2]
		if left || right {
			keep = append(keep, c)
			continue
		}
		if score, ok := existing[c.Key]; ok && score.FreshAt(now, window) {
			skipped++
			continue
		}
		keep = append(keep, c)
	}
	return keep, skipped
}

// partitionCandidates splits candidates into fixed-size batches.
func partitionCandidates(candidates []Candidate, size int) [][]Candidate {
	if size <= 0 {
		size = 1
	}
	var batches [][]Candidate
	for start := 0; start < len(candidates); start += size {
		end := start + size
		if end > len(candidates) {
			end = len(candidates)
		}
		batches = append(batches, candidates[start:end])
	}
	return batches
}

// sortedIDs returns map keys in lexicographic order for deterministic
// candidate generation.
func sortedIDs(embeddings map[string][]float32) []string {
	ids := make([]string, 0, len(embeddings))
	for id := range embeddings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
