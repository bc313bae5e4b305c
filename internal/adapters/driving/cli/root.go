// Package cli implements the relink command line interface using
// cobra. Commands are wired to core services through the driving
// ports, keeping the CLI a thin adapter over the link engine.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/relink-cli/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/relink-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/relink-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/relink-cli/internal/adapters/driven/vault/filesystem"
	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driving"
	"github.com/custodia-labs/relink-cli/internal/core/services"
	"github.com/custodia-labs/relink-cli/internal/logger"
)

// Wired services. Populated on demand by the ensure* helpers so that
// commands like version and stats work without a configured gateway.
// Tests replace these with mocks.
var (
	configStore driven.ConfigStore
	promptStore driven.PromptStore
	cacheStore  driven.CacheStore
	noteVault   driven.Vault
	linkEngine  driving.LinkEngine
	appSettings domain.Settings
)

var (
	verboseFlag   bool
	configDirFlag string
	vaultFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "relink",
	Short: "Incremental note linking for markdown vaults",
	Long: `relink scans a markdown vault, embeds changed notes, scores
candidate pairs with an LLM and maintains a managed "Related notes"
section below the relink marker in each note.

Scores and embeddings are cached in a local SQLite database, so
repeated runs only pay for what changed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config", "", "config directory (default ~/.relink)")
	rootCmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "vault directory (overrides configured root)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a cancellable context.
// Cancelling the context stops an active run between batches.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// ensureConfig loads the config store and settings.
func ensureConfig() error {
	if configStore == nil {
		store, err := configfile.NewConfigStore(configDirFlag)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		configStore = store
		appSettings = configfile.LoadSettings(store)
	}
	if vaultFlag != "" {
		appSettings.Vault.Root = vaultFlag
	}
	return nil
}

// ensureCache opens the SQLite cache store.
func ensureCache() error {
	if cacheStore != nil {
		return nil
	}
	if err := ensureConfig(); err != nil {
		return err
	}
	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	cacheStore = store
	return nil
}

// ensureEngine wires the full pipeline: config, cache, vault, model
// gateway and prompt store into a link engine. The gateway is pinged
// during creation, so a misconfigured provider fails here rather than
// mid-run.
func ensureEngine() error {
	if linkEngine != nil {
		return nil
	}
	if err := ensureCache(); err != nil {
		return err
	}
	if !appSettings.Vault.IsConfigured() {
		return fmt.Errorf("no vault configured: set vault.root with 'relink config set vault.root <dir>' or pass --vault")
	}
	if noteVault == nil {
		v, err := filesystem.New(appSettings.Vault)
		if err != nil {
			return fmt.Errorf("opening vault: %w", err)
		}
		noteVault = v
	}
	gateway, err := ai.CreateAndValidateGateway(appSettings.Gateway)
	if err != nil {
		return err
	}
	if promptStore == nil {
		prompts, err := configfile.NewPromptStore("")
		if err != nil {
			return fmt.Errorf("loading prompts: %w", err)
		}
		promptStore = prompts
	}
	linkEngine = services.NewLinkRunner(cacheStore, noteVault, gateway, promptStore, appSettings)
	return nil
}
