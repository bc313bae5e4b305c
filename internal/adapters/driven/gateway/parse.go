package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// pairVerdictJSON is the wire shape models are instructed to return
// for scoring.
type pairVerdictJSON struct {
	Pair      int     `json:"pair"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// tagSuggestionJSON is the wire shape for tag suggestions.
type tagSuggestionJSON struct {
	Note int      `json:"note"`
	Tags []string `json:"tags"`
}

// ParsePairVerdicts extracts scoring verdicts from raw model output.
// Verdicts referencing pair numbers outside the request are dropped;
// missing pairs are the caller's problem (the engine fills a neutral
// default), so a shorter result is not an error.
func ParsePairVerdicts(raw string, pairs []driven.ScorePair) ([]driven.PairVerdict, error) {
	payload, err := extractJSONArray(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing score response: %w", err)
	}

	var items []pairVerdictJSON
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("parsing score response: %w", err)
	}

	verdicts := make([]driven.PairVerdict, 0, len(items))
	for _, item := range items {
		if item.Pair < 1 || item.Pair > len(pairs) {
			continue
		}
		pair := pairs[item.Pair-1]
		verdicts = append(verdicts, driven.PairVerdict{
			ID1:       pair.ID1,
			ID2:       pair.ID2,
			Score:     item.Score,
			Reasoning: item.Reasoning,
		})
	}
	return verdicts, nil
}

// ParseTagSuggestions extracts tag suggestions from raw model output.
func ParseTagSuggestions(raw string, notes []driven.TagRequest) ([]driven.TagSuggestion, error) {
	payload, err := extractJSONArray(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing tag response: %w", err)
	}

	var items []tagSuggestionJSON
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("parsing tag response: %w", err)
	}

	suggestions := make([]driven.TagSuggestion, 0, len(items))
	for _, item := range items {
		if item.Note < 1 || item.Note > len(notes) {
			continue
		}
		suggestions = append(suggestions, driven.TagSuggestion{
			ID:   notes[item.Note-1].ID,
			Tags: normaliseTags(item.Tags),
		})
	}
	return suggestions, nil
}

// extractJSONArray locates the first top-level JSON array in raw.
// Models wrap output in prose or markdown code fences often enough
// that bare json.Unmarshal on the whole response is unreliable.
func extractJSONArray(raw string) (string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON array in model output")
	}
	return raw[start : end+1], nil
}

// normaliseTags lowercases, trims and de-duplicates tags, dropping
// empties.
func normaliseTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.TrimPrefix(tag, "#")
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
