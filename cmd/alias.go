package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/config"
	"github.com/CreamyCappuccino/mlxlm/internal/models"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage model aliases",
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List aliases",
	RunE: func(cmd *cobra.Command, args []string) error {
		openStore() // syncs aliases against the cache
		aliases := models.LoadAliases(config.AliasFile())
		pairs := aliases.Pairs()
		if len(pairs) == 0 {
			fmt.Println("No aliases defined.")
			return nil
		}
		for _, p := range pairs {
			fmt.Printf("%-20s %s\n", p.Alias, models.CacheKeyToRepoID(p.CacheKey))
		}
		return nil
	},
}

var aliasAddCmd = &cobra.Command{
	Use:   "add <model> <alias>",
	Short: "Assign an alias to a cached model",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openStore()
		entry, err := store.Get(args[0])
		if err != nil {
			return err
		}

		aliases := models.LoadAliases(config.AliasFile())
		if err := aliases.Set(entry.CacheKey, args[1]); err != nil {
			return err
		}
		if err := aliases.Save(); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", args[1], entry.RepoID)
		return nil
	},
}

var aliasRenameCmd = &cobra.Command{
	Use:     "rename <old> <new>",
	Aliases: []string{"edit"},
	Short:   "Rename an alias",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		aliases := models.LoadAliases(config.AliasFile())
		if err := aliases.Rename(args[0], args[1]); err != nil {
			return err
		}
		if err := aliases.Save(); err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

var aliasRemoveCmd = &cobra.Command{
	Use:     "rm <alias>",
	Aliases: []string{"remove"},
	Short:   "Remove an alias (the model stays cached)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		aliases := models.LoadAliases(config.AliasFile())
		cacheKey, err := aliases.Clear(args[0])
		if err != nil {
			return err
		}
		if err := aliases.Save(); err != nil {
			return err
		}
		fmt.Printf("Removed alias %s (was %s)\n", args[0], models.CacheKeyToRepoID(cacheKey))
		return nil
	},
}

func init() {
	aliasCmd.AddCommand(aliasListCmd, aliasAddCmd, aliasRenameCmd, aliasRemoveCmd)
	rootCmd.AddCommand(aliasCmd)
}
