package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/models"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cached models",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openStore()
		entries := store.List()
		if len(entries) == 0 {
			fmt.Printf("No models in cache (%s).\nTry 'mlxlm pull <org/repo>' or 'mlxlm search <query>'.\n", store.Dir())
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ALIAS\tMODEL\tSIZE\tMODIFIED")
		for _, e := range entries {
			alias := e.Alias
			if alias == "" {
				alias = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				alias, e.RepoID, models.HumanBytes(e.Size), e.ModifiedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
