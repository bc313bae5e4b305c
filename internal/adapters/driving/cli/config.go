package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/relink-cli/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/relink-cli/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit relink configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Sets a dotted configuration key, for example:

  relink config set vault.root ~/notes
  relink config set gateway.provider openai
  relink config set gateway.api_key sk-...
  relink config set linking.similarity_threshold 0.75

Numeric values are stored as numbers, everything else as strings.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the configured model provider is reachable",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}

	cmd.Printf("Config file: %s\n\n", configStore.Path())
	cmd.Printf("vault.root                    = %s\n", appSettings.Vault.Root)
	cmd.Printf("vault.excluded_folders        = %s\n", strings.Join(appSettings.Vault.ExcludedFolders, ", "))
	cmd.Printf("vault.excluded_patterns       = %s\n", strings.Join(appSettings.Vault.ExcludedPatterns, ", "))
	cmd.Printf("gateway.provider              = %s\n", appSettings.Gateway.Provider)
	cmd.Printf("gateway.model                 = %s\n", appSettings.Gateway.Model)
	cmd.Printf("gateway.embedding_provider    = %s\n", appSettings.Gateway.EmbedProvider())
	cmd.Printf("gateway.embedding_model       = %s\n", appSettings.Gateway.EmbeddingModel)
	cmd.Printf("gateway.base_url              = %s\n", appSettings.Gateway.BaseURL)
	cmd.Printf("gateway.api_key               = %s\n", maskSecret(appSettings.Gateway.APIKey))
	cmd.Printf("linking.similarity_threshold  = %.2f\n", appSettings.Linking.SimilarityThreshold)
	cmd.Printf("linking.ai_score_threshold    = %.1f\n", appSettings.Linking.AIScoreThreshold)
	cmd.Printf("linking.max_links_per_note    = %d\n", appSettings.Linking.MaxLinksPerNote)
	cmd.Printf("linking.batch_size            = %d\n", appSettings.Linking.BatchSize)
	cmd.Printf("linking.freshness_days        = %d\n", int(appSettings.Linking.FreshnessWindow.Hours()/24))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}

	key, raw := args[0], args[1]
	if !knownConfigKey(key) {
		return fmt.Errorf("unknown config key %q (see 'relink config show' for valid keys)", key)
	}

	if err := configStore.Set(key, parseConfigValue(raw)); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}
	if err := ai.ValidateGatewayConfig(appSettings.Gateway); err != nil {
		return err
	}
	cmd.Printf("Provider %s is reachable\n", appSettings.Gateway.Provider)
	return nil
}

// parseConfigValue stores numerics as numbers so typed getters work.
func parseConfigValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func knownConfigKey(key string) bool {
	keys := configfile.ConfigKeys()
	i := sort.SearchStrings(keys, key)
	return i < len(keys) && keys[i] == key
}

func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
