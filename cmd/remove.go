package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/models"
)

var removeCmd = &cobra.Command{
	Use:     "rm <model>...",
	Aliases: []string{"remove"},
	Short:   "Delete cached models",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openStore()
		yes, _ := cmd.Flags().GetBool("yes")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		// Resolve everything up front so a typo aborts before any deletion.
		var entries []models.Entry
		for _, name := range args {
			entry, err := store.Get(name)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		var total int64
		fmt.Println("Will remove:")
		for _, e := range entries {
			fmt.Printf("  %s (%s)\n", e.RepoID, models.HumanBytes(e.Size))
			total += e.Size
		}
		fmt.Printf("Total: %s\n", models.HumanBytes(total))

		if dryRun {
			fmt.Println("Dry run, nothing deleted.")
			return nil
		}
		if !yes && !confirm("Proceed? [y/N] ") {
			fmt.Println("Aborted.")
			return nil
		}

		for _, e := range entries {
			if err := store.Remove(e.CacheKey); err != nil {
				return fmt.Errorf("remove %s: %w", e.RepoID, err)
			}
			fmt.Printf("Removed %s\n", e.RepoID)
		}
		return nil
	},
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	removeCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	removeCmd.Flags().Bool("dry-run", false, "show what would be removed without deleting")
	rootCmd.AddCommand(removeCmd)
}
