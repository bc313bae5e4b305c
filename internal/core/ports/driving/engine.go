package driving

import (
	"context"
	"time"
)

// LinkEngine coordinates linking runs against the vault and cache.
type LinkEngine interface {
	// Run executes a full linking pass: scan, embed changed notes,
	// generate candidates, score in batches, reconcile links.
	// Returns domain.ErrRunInProgress when a run is already active.
	Run(ctx context.Context, opts RunOptions) (*RunReport, error)

	// RetryFailures re-runs exactly the item keys recorded in the
	// failure journal, regardless of score freshness.
	RetryFailures(ctx context.Context) (*RunReport, error)

	// GenerateTags runs the batched tag pipeline over the vault.
	GenerateTags(ctx context.Context) (*TagReport, error)

	// Status returns a snapshot of the active run, or an idle status.
	Status() *RunStatus
}

// RunOptions selects the processing mode.
type RunOptions struct {
	// Force disables the freshness skip and regenerates candidates
	// from every embedded pair instead of only changed notes.
	Force bool
}

// RunPhase is the engine state machine position.
type RunPhase string

// Run phases, in execution order.
const (
	PhaseIdle       RunPhase = "idle"
	PhaseScanning   RunPhase = "scanning"
	PhaseEmbedding  RunPhase = "embedding"
	PhaseCandidates RunPhase = "compute_candidates"
	PhaseScoring    RunPhase = "score_batches"
	PhaseTagging    RunPhase = "tag_batches"
	PhaseReconcile  RunPhase = "reconcile"
	PhaseDone       RunPhase = "done"
	PhaseCancelled  RunPhase = "cancelled"
)

// RunStatus is a point-in-time view of engine progress.
type RunStatus struct {
	Running      bool
	Phase        RunPhase
	BatchesDone  int
	BatchesTotal int
}

// RunReport summarises a completed linking run.
type RunReport struct {
	NotesScanned   int
	NotesEmbedded  int
	CandidatePairs int
	PairsSkipped   int
	PairsScored    int
	BatchesFailed  int
	LinksAdded     int
	LinksRemoved   int
	Duration       time.Duration
}

// TagReport summarises a tag generation run.
type TagReport struct {
	NotesTagged   int
	BatchesFailed int
	Duration      time.Duration
}
