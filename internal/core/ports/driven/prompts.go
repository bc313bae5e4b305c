package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the
// binary, or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a
	// sensible default or an error, depending on whether the prompt
	// is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next
	// access. Useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptScorePairs rates candidate pair relevance. The gateway
	// appends the serialised pair list below the template.
	PromptScorePairs = "score_pairs"

	// PromptSuggestTags generates tags for notes. The gateway appends
	// the tag count bounds and the serialised note list below the
	// template.
	PromptSuggestTags = "suggest_tags"
)
