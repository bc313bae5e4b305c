package gateway

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// defaultScorePrompt is the fallback instruction header when no
// prompt override is configured.
const defaultScorePrompt = `You are rating how strongly pairs of personal knowledge notes relate to each other.
For each numbered pair below, rate the relevance from 0 (unrelated) to 10 (essentially about the same subject).
Judge by subject matter, not writing style. The cosine similarity is a hint, not the answer.
Respond with a JSON array only, one object per pair, in this exact shape:
[{"pair": 1, "score": 7, "reasoning": "one short sentence"}]`

// defaultTagPrompt is the fallback instruction header for tag
// suggestions. Tag count bounds are appended by BuildTagPrompt.
const defaultTagPrompt = `You are suggesting topic tags for personal knowledge notes.
For each numbered note below, propose concise lowercase tags (single words or hyphenated phrases).
Prefer refining the note's existing tags over replacing them wholesale.
Respond with a JSON array only, one object per note, in this exact shape:
[{"note": 1, "tags": ["tag-one", "tag-two"]}]`

// BuildScorePrompt renders a scoring request: the instruction header
// (override or default) followed by the numbered pair data.
func BuildScorePrompt(pairs []driven.ScorePair, override string) string {
	header := defaultScorePrompt
	if override != "" {
		header = override
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for i, pair := range pairs {
		fmt.Fprintf(&b, "\nPair %d (cosine similarity %.2f):\n", i+1, pair.Similarity)
		fmt.Fprintf(&b, "Note A: %s\n%s\n", pair.Title1, pair.Content1)
		fmt.Fprintf(&b, "Note B: %s\n%s\n", pair.Title2, pair.Content2)
	}
	return b.String()
}

// BuildTagPrompt renders a tag request: the instruction header
// (override or default), the tag count bounds, and the numbered notes.
func BuildTagPrompt(notes []driven.TagRequest, override string, minTags, maxTags int) string {
	header := defaultTagPrompt
	if override != "" {
		header = override
	}

	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "\nSuggest between %d and %d tags per note.\n", minTags, maxTags)
	for i, note := range notes {
		fmt.Fprintf(&b, "\nNote %d: %s\n", i+1, note.Title)
		if len(note.ExistingTags) > 0 {
			fmt.Fprintf(&b, "Existing tags: %s\n", strings.Join(note.ExistingTags, ", "))
		}
		b.WriteString(note.Content)
		b.WriteString("\n")
	}
	return b.String()
}
