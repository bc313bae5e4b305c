package domain

import "time"

// OperationType identifies which batched remote operation failed.
type OperationType string

// Batched remote operations tracked by the failure journal.
const (
	// OperationScoring is batched pair relevance scoring.
	OperationScoring OperationType = "scoring"

	// OperationTagging is batched tag generation.
	OperationTagging OperationType = "tagging"
)

// IsValid returns true if the operation type is recognised.
func (t OperationType) IsValid() bool {
	return t == OperationScoring || t == OperationTagging
}

// BatchInfo describes the batch a failure record covers.
type BatchInfo struct {
	// Ordinal is the 1-based batch position within its run.
	Ordinal int `json:"ordinal"`

	// Total is the number of batches in that run.
	Total int `json:"total"`

	// ItemKeys are the canonical keys of the batch members: pair keys
	// for scoring, note ids for tagging. They drive retry targeting
	// and journal resolution.
	ItemKeys []string `json:"item_keys"`

	// Labels are human-readable descriptions of the members
	// (note paths, not opaque ids).
	Labels []string `json:"labels"`
}

// FailureRecord is an unresolved batch failure awaiting retry.
// The journal is the sole source of truth for what must be retried.
type FailureRecord struct {
	ID           string
	Timestamp    time.Time
	Operation    OperationType
	Batch        BatchInfo
	ErrorMessage string
	Resolved     bool
}

// Covers reports whether any of the record's item keys appear in keys.
// A successful batch resolves every record it covers, even when the
// batch also contained unrelated items.
func (r FailureRecord) Covers(keys map[string]struct{}) bool {
	for _, k := range r.Batch.ItemKeys {
		if _, ok := keys[k]; ok {
			return true
		}
	}
	return false
}
