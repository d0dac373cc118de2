package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
	"github.com/CreamyCappuccino/mlxlm/internal/session"
)

// command handles a REPL slash command. It returns true when the chat
// should end.
func (c *chatRun) command(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "exit", "quit", "bye":
		c.autosave()
		return true, nil

	case "help":
		c.printHelp()

	case "new":
		c.autosave()
		c.newSession()
		fmt.Println("Started a new session.")

	case "clear":
		c.history = nil
		fmt.Println("History cleared. The session transcript is kept.")

	case "save":
		if arg != "" {
			c.sess.Name = arg
		}
		if err := c.sessions.Save(c.sess); err != nil {
			return false, err
		}
		fmt.Printf("Saved as %s (%s).\n", c.sess.Title(), c.sess.ID[:8])

	case "resume":
		if arg == "" {
			return false, fmt.Errorf("usage: /resume <id>")
		}
		c.autosave()
		return false, c.resume(arg)

	case "sessions":
		sessions, err := c.sessions.List()
		if err != nil {
			return false, err
		}
		if len(sessions) == 0 {
			fmt.Println("No saved sessions.")
			break
		}
		for _, s := range sessions {
			fmt.Printf("  %s  %-40s %d msgs  %s\n",
				s.ID[:8], s.Title(), s.MessageCount,
				s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}

	case "export":
		formatName := c.cfg.Export.DefaultFormat
		file := ""
		if arg != "" {
			parts := strings.Fields(arg)
			formatName = parts[0]
			if len(parts) > 1 {
				file = parts[1]
			}
		}
		format, err := session.ParseExportFormat(formatName)
		if err != nil {
			return false, err
		}
		out, err := session.Export(c.sess, format)
		if err != nil {
			return false, err
		}
		if file == "" {
			os.Stdout.Write(out)
			break
		}
		if err := os.WriteFile(file, out, 0644); err != nil {
			return false, err
		}
		fmt.Printf("Exported to %s\n", file)

	case "recall":
		if c.recall == nil {
			fmt.Println("Recall is not enabled. Start with --recall.")
			break
		}
		if arg == "" {
			return false, fmt.Errorf("usage: /recall <query>")
		}
		hits, err := c.recall.Search(ctx, arg, 5)
		if err != nil {
			return false, err
		}
		if len(hits) == 0 {
			fmt.Println("Nothing relevant found.")
			break
		}
		for _, h := range hits {
			fmt.Printf("  [%.3f] %s\n         %s\n",
				h.CombinedScore, truncateLine(h.Exchange.Prompt, 70),
				truncateLine(h.Exchange.Reply, 70))
		}

	case "status":
		c.printStatus()

	case "mode":
		if arg == "" {
			fmt.Printf("Chat mode: %s\n", c.mode)
			break
		}
		mode, err := chat.ParseMode(arg)
		if err != nil {
			return false, err
		}
		c.mode = mode
		fmt.Printf("Chat mode set to %s.\n", mode)

	case "stream":
		switch arg {
		case "all", "final", "off":
			c.streamMode = arg
			fmt.Printf("Stream mode set to %s.\n", arg)
		case "":
			fmt.Printf("Stream mode: %s\n", c.streamMode)
		default:
			return false, fmt.Errorf("unknown stream mode %q (want all, final or off)", arg)
		}

	case "reasoning":
		switch arg {
		case "low", "medium", "high":
			c.reasoning = arg
			fmt.Printf("Reasoning effort set to %s.\n", arg)
		case "off", "none":
			c.reasoning = ""
			fmt.Println("Reasoning directive removed.")
		case "":
			if c.reasoning == "" {
				fmt.Println("Reasoning directive: off")
			} else {
				fmt.Printf("Reasoning effort: %s\n", c.reasoning)
			}
		default:
			return false, fmt.Errorf("unknown reasoning effort %q (want low, medium, high or off)", arg)
		}

	case "history":
		switch arg {
		case "on":
			c.historyOn = true
			fmt.Println("History on.")
		case "off":
			c.historyOn = false
			c.history = nil
			fmt.Println("History off; each message stands alone.")
		case "":
			fmt.Printf("History: %v\n", c.historyOn)
		default:
			return false, fmt.Errorf("usage: /history on|off")
		}

	default:
		return false, fmt.Errorf("unknown command /%s (try /help)", name)
	}
	return false, nil
}

func (c *chatRun) printStatus() {
	fmt.Printf("Model:      %s\n", c.entry.RepoID)
	fmt.Printf("Session:    %s (%d messages)\n", c.sess.ID[:8], c.sess.MessageCount)
	fmt.Printf("Chat mode:  %s\n", c.mode)
	fmt.Printf("Stream:     %s\n", c.streamMode)
	fmt.Printf("Max tokens: %d\n", c.maxTokens)
	fmt.Printf("History:    %v\n", c.historyOn)
	if c.reasoning != "" {
		fmt.Printf("Reasoning:  %s\n", c.reasoning)
	}
	if c.timeLimit > 0 {
		fmt.Printf("Time limit: %ds\n", c.timeLimit)
	}
	if c.recall != nil {
		fmt.Printf("Recall:     %d exchanges\n", c.recall.Count())
	}
	if override := os.Getenv(chat.OverrideEnv); override != "" {
		fmt.Printf("Renderer:   %s (from %s)\n", override, chat.OverrideEnv)
	}
}

func (c *chatRun) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /save [name]          Save the session, optionally naming it")
	fmt.Println("  /resume <id>          Switch to a saved session")
	fmt.Println("  /sessions             List saved sessions")
	fmt.Println("  /new                  Save and start a fresh session")
	fmt.Println("  /clear                Forget prior turns, keep the transcript")
	fmt.Println("  /export [fmt] [file]  Export the session (md, json, txt)")
	fmt.Println("  /recall <query>       Search past exchanges")
	fmt.Println("  /status               Show current settings")
	fmt.Println("  /mode [m]             Show or set chat mode")
	fmt.Println("  /stream [m]           Show or set stream mode")
	fmt.Println("  /reasoning [level]    Show or set reasoning effort")
	fmt.Println("  /history on|off       Toggle conversation history")
	fmt.Println("  /exit, /bye           Save and quit")
}

// truncateLine flattens newlines and cuts at max runes, not bytes, so
// multi-byte text is never split mid-rune.
func truncateLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
