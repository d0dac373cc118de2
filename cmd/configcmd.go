package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		for _, key := range cfg.Keys() {
			value, err := cfg.Get(key)
			if err != nil {
				return err
			}
			fmt.Printf("%-28s %s\n", key, value)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := loadConfig().Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.EnsureDirs(); err != nil {
			return err
		}
		cfg := loadConfig()
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
