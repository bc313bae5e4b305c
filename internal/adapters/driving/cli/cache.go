package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheYesFlag bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local score and embedding cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cache rows for notes no longer in the vault",
	RunE:  runCacheClean,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached notes, embeddings and scores",
	Long: `Deletes every cached row. The next linking run re-embeds and
rescores the entire vault, so this is expensive for large vaults.
Managed link sections in notes are left untouched.`,
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().BoolVarP(&cacheYesFlag, "yes", "y", false, "skip the confirmation prompt")
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClean(cmd *cobra.Command, _ []string) error {
	if err := ensureCache(); err != nil {
		return err
	}
	if err := cacheStore.CleanOrphans(cmd.Context()); err != nil {
		return err
	}
	cmd.Printf("Removed orphaned cache rows\n")
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if err := ensureCache(); err != nil {
		return err
	}
	if !cacheYesFlag {
		cmd.Printf("This deletes all cached embeddings and scores. Continue? [y/N]: ")
		var answer string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil || (answer != "y" && answer != "Y") {
			cmd.Printf("Aborted\n")
			return nil
		}
	}
	if err := cacheStore.Clear(cmd.Context()); err != nil {
		return err
	}
	cmd.Printf("Cache cleared\n")
	return nil
}
