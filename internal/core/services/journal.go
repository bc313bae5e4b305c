package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/relink-cli/internal/logger"
)

// FailureJournal records unresolved batch failures so a later run can
// retry exactly the failed units. The journal, not the score table,
// is the source of truth for what must be retried.
type FailureJournal struct {
	log driven.FailureLog
}

// NewFailureJournal creates a failure journal over a failure log.
func NewFailureJournal(log driven.FailureLog) *FailureJournal {
	return &FailureJournal{log: log}
}

// Record appends a failure for a batch. The record id is derived from
// the operation and item keys, so re-recording an identical batch
// descriptor overwrites the previous record instead of duplicating it.
func (j *FailureJournal) Record(
	ctx context.Context,
	op domain.OperationType,
	batch domain.BatchInfo,
	cause error,
) error {
	record := domain.FailureRecord{
		ID:           failureID(op, batch.ItemKeys),
		Timestamp:    time.Now().UTC(),
		Operation:    op,
		Batch:        batch,
		ErrorMessage: cause.Error(),
	}
	if err := j.log.RecordFailure(ctx, record); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// Unresolved returns all failures awaiting retry.
func (j *FailureJournal) Unresolved(ctx context.Context) ([]domain.FailureRecord, error) {
	return j.log.UnresolvedFailures(ctx)
}

// ResolveCovered deletes every failure record whose item-key set
// intersects succeededKeys. A successful batch resolves the failures
// it covers even when it also contained unrelated new items.
func (j *FailureJournal) ResolveCovered(ctx context.Context, succeededKeys map[string]struct{}) (int, error) {
	records, err := j.log.UnresolvedFailures(ctx)
	if err != nil {
		return 0, fmt.Errorf("list failures: %w", err)
	}

	resolved := 0
	for _, record := range records {
		if !record.Covers(succeededKeys) {
			continue
		}
		if err := j.log.DeleteFailure(ctx, record.ID); err != nil {
			return resolved, fmt.Errorf("delete failure %s: %w", record.ID, err)
		}
		logger.Debug("Resolved failure %s (%s, batch %d/%d)",
			record.ID, record.Operation, record.Batch.Ordinal, record.Batch.Total)
		resolved++
	}
	return resolved, nil
}

// failureID derives a stable id from an operation and its item keys.
func failureID(op domain.OperationType, itemKeys []string) string {
	keys := make([]string, len(itemKeys))
	copy(keys, itemKeys)
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(string(op) + ":" + strings.Join(keys, ",")))
	return hex.EncodeToString(sum[:8])
}
