package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/relink-cli/internal/core/ports/driving"
)

var listFailuresFlag bool

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reprocess batches recorded in the failure journal",
	Long: `Re-runs exactly the pairs and notes recorded by failed batches.
Unlike 'relink link', retry ignores score freshness for the journaled
items, so previously failed work is never skipped.

Use --list to inspect the journal without reprocessing anything.`,
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().BoolVarP(&listFailuresFlag, "list", "l", false, "list unresolved failures without retrying")
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, _ []string) error {
	if listFailuresFlag {
		return listFailures(cmd)
	}

	if err := ensureEngine(); err != nil {
		return err
	}

	report, err := runWithProgress(cmd, func() (*driving.RunReport, error) {
		return linkEngine.RetryFailures(cmd.Context())
	})
	if err != nil {
		return err
	}

	if report.PairsScored == 0 && report.BatchesFailed == 0 {
		cmd.Printf("No unresolved failures to retry\n")
		return nil
	}
	printRunReport(cmd, report)
	return nil
}

func listFailures(cmd *cobra.Command) error {
	if err := ensureCache(); err != nil {
		return err
	}

	records, err := cacheStore.UnresolvedFailures(cmd.Context())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Printf("No unresolved failures\n")
		return nil
	}

	cmd.Printf("Unresolved failures: %d\n", len(records))
	for _, rec := range records {
		cmd.Printf("  [%s] %s: %d items (%s)\n",
			rec.Timestamp.Format("2006-01-02 15:04"),
			rec.Operation,
			len(rec.Batch.ItemKeys),
			rec.ErrorMessage)
	}
	return nil
}
