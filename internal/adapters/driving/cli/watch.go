package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driving"
	"github.com/custodia-labs/relink-cli/internal/logger"
)

// debounceWindow batches bursts of file events (editors often write a
// note several times in quick succession) into a single linking run.
const debounceWindow = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the vault and relink on changes",
	Long: `Watches the vault directory for markdown changes and triggers an
incremental linking run after each burst of edits settles. Runs until
interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := ensureEngine(); err != nil {
		return err
	}

	root, err := filepath.Abs(appSettings.Vault.Root)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watchTree(watcher, root); err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", root)

	// The timer starts drained; the first markdown event arms it.
	debounce := time.NewTimer(debounceWindow)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if added := watchIfDir(watcher, event.Name); added {
					continue
				}
			}
			if !isMarkdownEvent(event) {
				continue
			}
			logger.Debug("vault change: %s %s", event.Op, event.Name)
			debounce.Reset(debounceWindow)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Debug("watch error: %v", err)

		case <-debounce.C:
			report, err := linkEngine.Run(ctx, driving.RunOptions{})
			switch {
			case errors.Is(err, domain.ErrRunCancelled):
				return nil
			case errors.Is(err, domain.ErrRunInProgress):
				logger.Debug("run already active, rescheduling")
				debounce.Reset(debounceWindow)
			case err != nil:
				return err
			default:
				cmd.Printf("[%s] relinked: %d scored, %d links added, %d removed\n",
					time.Now().Format("15:04:05"),
					report.PairsScored, report.LinksAdded, report.LinksRemoved)
			}
		}
	}
}

// watchTree registers the root and every non-hidden subdirectory.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// watchIfDir adds a watch for newly created directories. Returns true
// when the path was a directory.
func watchIfDir(watcher *fsnotify.Watcher, path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := watcher.Add(path); err != nil {
		logger.Debug("watch add %s: %v", path, err)
	}
	return true
}

func isMarkdownEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".md")
}
