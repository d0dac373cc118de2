package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/models"
)

var showCmd = &cobra.Command{
	Use:   "show <model>",
	Short: "Show details of a cached model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openStore()
		entry, err := store.Get(args[0])
		if err != nil {
			return err
		}

		full, _ := cmd.Flags().GetBool("full")
		mc := store.LoadModelConfig(entry.CacheKey)

		fmt.Printf("Model:     %s\n", entry.RepoID)
		if entry.Alias != "" {
			fmt.Printf("Alias:     %s\n", entry.Alias)
		}
		fmt.Printf("Path:      %s\n", entry.Path)
		fmt.Printf("Size:      %s\n", models.HumanBytes(entry.Size))
		fmt.Printf("Modified:  %s\n", entry.ModifiedAt.Format("2006-01-02 15:04"))

		if mc != nil {
			flat := mc.Flatten()
			if mt := flat.ModelType(); mt != "" {
				fmt.Printf("Type:      %s\n", mt)
			}
			if p := flat.Precision(); p != "" {
				fmt.Printf("Precision: %s\n", p)
			}
			layers := flat.Int("num_hidden_layers", "n_layers")
			hidden := flat.Int("hidden_size", "d_model")
			ctxLen := flat.Int("max_position_embeddings", "max_seq_len")
			if layers > 0 {
				fmt.Printf("Layers:    %d\n", layers)
			}
			if hidden > 0 {
				fmt.Printf("Hidden:    %d\n", hidden)
			}
			if ctxLen > 0 {
				fmt.Printf("Context:   %d tokens\n", ctxLen)
				if layers > 0 && hidden > 0 {
					kv := models.EstimateKVBytes(layers, hidden, ctxLen, 2)
					fmt.Printf("KV cache:  ~%s at full context\n", models.HumanBytes(kv))
				}
			}
		}

		if full && mc != nil {
			fmt.Println("\nconfig.json:")
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any(mc))
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("full", false, "dump the full model config")
	rootCmd.AddCommand(showCmd)
}
