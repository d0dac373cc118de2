package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/config"
	"github.com/CreamyCappuccino/mlxlm/internal/hub"
	"github.com/CreamyCappuccino/mlxlm/internal/models"
)

var pullCmd = &cobra.Command{
	Use:   "pull <org/repo>",
	Short: "Download a model snapshot from the hub",
	Long: `Download a model repository into the local cache.

Examples:
  mlxlm pull mlx-community/Qwen2.5-7B-Instruct-4bit
  mlxlm pull mlx-community/gpt-oss-20b-4bit

Set HF_TOKEN for gated models.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Offline() {
			return fmt.Errorf("offline mode is enabled (MLXLM_OFFLINE); cannot download")
		}
		if err := config.EnsureDirs(); err != nil {
			return err
		}

		store := openStore()
		repoID := store.ResolveRepoID(args[0])
		if !strings.Contains(repoID, "/") {
			return fmt.Errorf("%q is not an org/repo reference", args[0])
		}

		fmt.Printf("Pulling %s into %s\n", repoID, store.Dir())

		var lastFile string
		snapDir, err := hub.NewClient().Snapshot(cmd.Context(), repoID, store.Dir(), hub.SnapshotOptions{
			Progress: func(file string, downloaded, total int64) {
				if file != lastFile {
					lastFile = file
					fmt.Println()
				}
				if total > 0 {
					pct := float64(downloaded) / float64(total) * 100
					fmt.Printf("\r  %-40s %5.1f%% (%s / %s)", trimName(file), pct,
						models.HumanBytes(downloaded), models.HumanBytes(total))
				} else {
					fmt.Printf("\r  %-40s %s", trimName(file), models.HumanBytes(downloaded))
				}
			},
		})
		if err != nil {
			return err
		}

		fmt.Printf("\n\nDone. Snapshot at %s\n", snapDir)
		return nil
	},
}

func trimName(name string) string {
	if len(name) > 40 {
		return "…" + name[len(name)-39:]
	}
	return name
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
