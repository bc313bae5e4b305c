package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPairKey_Canonicalises(t *testing.T) {
	assert.Equal(t, NewPairKey("a", "b"), NewPairKey("b", "a"))
	assert.Equal(t, "a|b", NewPairKey("b", "a").String())
}

func TestPairKey_Other(t *testing.T) {
	key := NewPairKey("a", "b")
	assert.Equal(t, "b", key.Other("a"))
	assert.Equal(t, "a", key.Other("b"))
	assert.Equal(t, "", key.Other("c"))
}

func TestPairScore_Canonicalise(t *testing.T) {
	score := PairScore{ID1: "z", ID2: "a", AIScore: 7}.Canonicalise()
	assert.Equal(t, "a", score.ID1)
	assert.Equal(t, "z", score.ID2)
	assert.Equal(t, 7.0, score.AIScore)
}

func TestPairScore_Oriented(t *testing.T) {
	score := PairScore{ID1: "a", ID2: "b"}

	oriented := score.Oriented("b")
	assert.Equal(t, "b", oriented.ID1)
	assert.Equal(t, "a", oriented.ID2)

	same := score.Oriented("a")
	assert.Equal(t, "a", same.ID1)
}

func TestPairScore_FreshAt(t *testing.T) {
	now := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	fresh := PairScore{UpdatedAt: now.Add(-time.Hour)}
	assert.True(t, fresh.FreshAt(now, window))

	stale := PairScore{UpdatedAt: now.Add(-8 * 24 * time.Hour)}
	assert.False(t, stale.FreshAt(now, window))

	never := PairScore{}
	assert.False(t, never.FreshAt(now, window), "zero timestamp is never fresh")
}
