package domain

import "time"

// PairKey is the canonical identity of an unordered note pair.
// ID1 is always the lexicographically smaller identifier, so
// (a, b) and (b, a) resolve to the same key.
type PairKey struct {
	ID1 string
	ID2 string
}

// NewPairKey returns the canonical key for two note ids.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{ID1: a, ID2: b}
}

// String returns a stable map/journal key for the pair.
func (k PairKey) String() string {
	return k.ID1 + "|" + k.ID2
}

// Other returns the pair member that is not id, or "" if id is not a member.
func (k PairKey) Other(id string) string {
	switch id {
	case k.ID1:
		return k.ID2
	case k.ID2:
		return k.ID1
	default:
		return ""
	}
}

// PairScore is the persisted scoring result for a canonical note pair.
type PairScore struct {
	// ID1 and ID2 form the canonical pair key (ID1 < ID2).
	ID1 string
	ID2 string

	// Similarity is the embedding cosine similarity in [0, 1].
	Similarity float64

	// AIScore is the model-assigned relevance in [0, 10].
	AIScore float64

	// Model is the scoring model.
	Model string

	// Reasoning is the model's optional explanation, or a placeholder
	// note when the score was defaulted.
	Reasoning string

	// UpdatedAt is when the pair was last scored.
	UpdatedAt time.Time
}

// Key returns the canonical key for the score.
func (s PairScore) Key() PairKey {
	return NewPairKey(s.ID1, s.ID2)
}

// Canonicalise reorders the pair into canonical form, preserving
// the score fields. Scores are symmetric so no field swap is needed.
func (s PairScore) Canonicalise() PairScore {
	if s.ID2 < s.ID1 {
		s.ID1, s.ID2 = s.ID2, s.ID1
	}
	return s
}

// Oriented returns a copy with first as ID1, regardless of canonical
// order. Used when presenting a note's neighbours.
func (s PairScore) Oriented(first string) PairScore {
	if s.ID2 == first {
		s.ID1, s.ID2 = s.ID2, s.ID1
	}
	return s
}

// FreshAt reports whether the score is younger than window at the
// given instant. Fresh scores are skipped in smart mode.
func (s PairScore) FreshAt(now time.Time, window time.Duration) bool {
	return !s.UpdatedAt.IsZero() && now.Sub(s.UpdatedAt) < window
}

// ScoreFilter narrows pair score queries.
type ScoreFilter struct {
	// MinSimilarity excludes pairs below this cosine similarity.
	MinSimilarity float64

	// MinAIScore excludes pairs below this model relevance score.
	MinAIScore float64

	// Limit caps the number of results. Zero means no cap.
	Limit int
}
