package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
	"github.com/CreamyCappuccino/mlxlm/internal/config"
	"github.com/CreamyCappuccino/mlxlm/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
}

func sessionStore() (*session.Store, error) {
	return session.NewStore(config.SessionsDir())
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStore()
		if err != nil {
			return err
		}
		sessions, err := st.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No saved sessions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tMODEL\tMSGS\tUPDATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				s.ID[:8], s.Title(), s.Model, s.MessageCount,
				s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStore()
		if err != nil {
			return err
		}
		s, err := st.Load(args[0])
		if err != nil {
			return err
		}

		styled := styles()
		fmt.Printf("%s (%s, %d messages)\n\n", s.Title(), s.Model, s.MessageCount)
		for _, turn := range s.History {
			switch turn.Role {
			case chat.RoleUser:
				fmt.Println(styled.Prompt.Render("> " + turn.Content))
			default:
				fmt.Println(styled.Output.Render(turn.Content))
			}
			fmt.Println()
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a saved session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStore()
		if err != nil {
			return err
		}
		if err := st.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <id> [file]",
	Short: "Export a session as markdown, JSON, or text",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStore()
		if err != nil {
			return err
		}
		s, err := st.Load(args[0])
		if err != nil {
			return err
		}

		formatName, _ := cmd.Flags().GetString("format")
		if formatName == "" {
			formatName = loadConfig().Export.DefaultFormat
		}
		format, err := session.ParseExportFormat(formatName)
		if err != nil {
			return err
		}

		out, err := session.Export(s, format)
		if err != nil {
			return err
		}

		if len(args) == 2 {
			if err := os.WriteFile(args[1], out, 0644); err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", args[1])
			return nil
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	sessionsExportCmd.Flags().StringP("format", "f", "", "export format: md, json, or txt")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsExportCmd)
	rootCmd.AddCommand(sessionsCmd)
}
