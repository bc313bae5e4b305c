package cli

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := ensureCache(); err != nil {
		return err
	}

	stats, err := cacheStore.Stats(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Cache statistics:\n")
	cmd.Printf("  Notes:               %d\n", stats.Notes)
	cmd.Printf("  Embeddings:          %d\n", stats.Embeddings)
	cmd.Printf("  Scored pairs:        %d\n", stats.ScoredPairs)
	cmd.Printf("  Ledger entries:      %d\n", stats.LedgerEntries)
	cmd.Printf("  Unresolved failures: %d\n", stats.UnresolvedFailures)
	return nil
}
