// Package cmd implements the mlxlm command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/config"
	"github.com/CreamyCappuccino/mlxlm/internal/logging"
	"github.com/CreamyCappuccino/mlxlm/internal/models"
	"github.com/CreamyCappuccino/mlxlm/internal/ux"
)

var rootCmd = &cobra.Command{
	Use:   "mlxlm",
	Short: "Local language model manager and chat",
	Long: `mlxlm manages locally cached language models and runs interactive chat
against them. Models live in the shared HuggingFace-style cache, so anything
already downloaded by other tools is picked up automatically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	defer logging.Sync()
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// loadConfig returns the merged configuration. A corrupt file degrades to
// defaults with a warning rather than blocking the command.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	return cfg
}

// openStore opens the model cache with aliases loaded.
func openStore() *models.Store {
	aliases := models.LoadAliases(config.AliasFile())
	store := models.NewStore(config.HubCacheDir(), aliases)
	if aliases.SyncFromCache(store.List()) {
		if err := aliases.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not update aliases: %v\n", err)
		}
	}
	return store
}

func styles() ux.Styles {
	return ux.NewStyles(ux.ThemeFromConfig(loadConfig().Colors))
}
