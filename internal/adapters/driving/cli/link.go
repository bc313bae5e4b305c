package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driving"
)

var forceFlag bool

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Scan the vault, score candidate pairs and reconcile links",
	Long: `Runs a full linking pass: scan the vault for changed notes,
refresh their embeddings, score candidate pairs with the configured
model and rewrite each note's managed link section.

In the default smart mode, pairs scored within the freshness window
are skipped. Use --force to rescore every candidate pair.`,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "rescore all candidate pairs, ignoring score freshness")
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, _ []string) error {
	if err := ensureEngine(); err != nil {
		return err
	}

	report, err := runWithProgress(cmd, func() (*driving.RunReport, error) {
		return linkEngine.Run(cmd.Context(), driving.RunOptions{Force: forceFlag})
	})
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			return errors.New("a linking run is already in progress")
		}
		return err
	}

	printRunReport(cmd, report)
	return nil
}

// runWithProgress runs fn in a goroutine and polls the engine status
// every 500ms, printing phase and batch progress on a single line.
func runWithProgress(cmd *cobra.Command, fn func() (*driving.RunReport, error)) (*driving.RunReport, error) {
	type result struct {
		report *driving.RunReport
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		report, err := fn()
		resultCh <- result{report, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			cmd.Printf("\r\033[K")
			return res.report, res.err
		case <-ticker.C:
			status := linkEngine.Status()
			if !status.Running {
				continue
			}
			switch status.Phase {
			case driving.PhaseScoring, driving.PhaseTagging:
				cmd.Printf("\r%s... batch %d/%d", phaseLabel(status.Phase), status.BatchesDone+1, status.BatchesTotal)
			default:
				cmd.Printf("\r%s...", phaseLabel(status.Phase))
			}
		}
	}
}

func phaseLabel(phase driving.RunPhase) string {
	switch phase {
	case driving.PhaseScanning:
		return "Scanning vault"
	case driving.PhaseEmbedding:
		return "Embedding changed notes"
	case driving.PhaseCandidates:
		return "Computing candidates"
	case driving.PhaseScoring:
		return "Scoring pairs"
	case driving.PhaseTagging:
		return "Generating tags"
	case driving.PhaseReconcile:
		return "Reconciling links"
	default:
		return "Working"
	}
}

func printRunReport(cmd *cobra.Command, report *driving.RunReport) {
	cmd.Printf("Linking complete in %s\n", report.Duration.Round(time.Millisecond))
	cmd.Printf("  Notes scanned:    %d\n", report.NotesScanned)
	cmd.Printf("  Notes embedded:   %d\n", report.NotesEmbedded)
	cmd.Printf("  Candidate pairs:  %d\n", report.CandidatePairs)
	cmd.Printf("  Pairs skipped:    %d\n", report.PairsSkipped)
	cmd.Printf("  Pairs scored:     %d\n", report.PairsScored)
	cmd.Printf("  Links added:      %d\n", report.LinksAdded)
	cmd.Printf("  Links removed:    %d\n", report.LinksRemoved)
	if report.BatchesFailed > 0 {
		cmd.Printf("  Batches failed:   %d (run 'relink retry' to reprocess)\n", report.BatchesFailed)
	}
}
