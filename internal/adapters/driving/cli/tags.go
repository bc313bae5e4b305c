package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Generate front matter tags for vault notes",
	Long: `Runs the batched tag pipeline: notes are sent to the configured
model in batches and the suggested tags are written into each note's
front matter. Failed batches are journaled for 'relink retry'.`,
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, _ []string) error {
	if err := ensureEngine(); err != nil {
		return err
	}

	report, err := linkEngine.GenerateTags(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Tagging complete in %s\n", report.Duration.Round(time.Millisecond))
	cmd.Printf("  Notes tagged:   %d\n", report.NotesTagged)
	if report.BatchesFailed > 0 {
		cmd.Printf("  Batches failed: %d (run 'relink retry' to reprocess)\n", report.BatchesFailed)
	}
	return nil
}
