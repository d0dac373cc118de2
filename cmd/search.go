package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/config"
	"github.com/CreamyCappuccino/mlxlm/internal/hub"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the hub for models",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Offline() {
			return fmt.Errorf("offline mode is enabled (MLXLM_OFFLINE); cannot search")
		}

		tags, _ := cmd.Flags().GetStringSlice("tag")
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		minDownloads, _ := cmd.Flags().GetInt("min-downloads")
		updatedWithin, _ := cmd.Flags().GetInt("updated-within")
		asJSON, _ := cmd.Flags().GetBool("json")

		results, err := hub.NewClient().Search(cmd.Context(), args[0], hub.SearchFilters{
			Tags:              tags,
			Sort:              sortBy,
			Limit:             limit,
			MinDownloads:      minDownloads,
			UpdatedWithinDays: updatedWithin,
		})
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		if len(results) == 0 {
			fmt.Println("No models found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tDOWNLOADS\tLIKES\tUPDATED")
		for _, m := range results {
			updated := "-"
			if !m.LastModified.IsZero() {
				updated = m.LastModified.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", m.ID, m.Downloads, m.Likes, updated)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().StringSlice("tag", []string{"mlx"}, "filter by tag (repeatable)")
	searchCmd.Flags().String("sort", "downloads", "sort order: downloads or updated")
	searchCmd.Flags().Int("limit", 20, "maximum number of results")
	searchCmd.Flags().Int("min-downloads", 0, "hide models with fewer downloads")
	searchCmd.Flags().Int("updated-within", 0, "hide models not updated within N days")
	searchCmd.Flags().Bool("json", false, "emit raw JSON")
	rootCmd.AddCommand(searchCmd)
}
