package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
	"github.com/CreamyCappuccino/mlxlm/internal/config"
	"github.com/CreamyCappuccino/mlxlm/internal/engine"
	"github.com/CreamyCappuccino/mlxlm/internal/models"
	"github.com/CreamyCappuccino/mlxlm/internal/recall"
	"github.com/CreamyCappuccino/mlxlm/internal/session"
	"github.com/CreamyCappuccino/mlxlm/internal/ux"
	"github.com/CreamyCappuccino/mlxlm/pkg/api"
)

var runCmd = &cobra.Command{
	Use:   "run <model>",
	Short: "Load a model and start an interactive chat",
	Long: `Load a cached model into a local model-server subprocess and chat with it.

Examples:
  mlxlm run qwen
  mlxlm run mlx-community/gpt-oss-20b-4bit --stream final
  mlxlm run qwen --system "You are terse." --max-tokens 512`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := openStore()

		entry, err := store.Get(args[0])
		if err != nil {
			return err
		}
		snapDir, err := store.SnapshotDir(entry.CacheKey)
		if err != nil {
			return err
		}
		mc := store.LoadModelConfig(entry.CacheKey).Flatten()

		c := &chatRun{
			cfg:    cfg,
			store:  store,
			entry:  entry,
			mc:     mc,
			styles: ux.NewStyles(ux.ThemeFromConfig(cfg.Colors)),
		}

		if err := c.applyFlags(cmd); err != nil {
			return err
		}

		// gpt-oss style models speak the harmony format natively; lock it in
		// before the first render instead of waiting for auto fallback.
		if c.mode == chat.ModeAuto && mc.NeedsHarmony() {
			c.mode = chat.ModeHarmony
			fmt.Println(c.styles.Dim.Render("Model uses the harmony chat format."))
		}

		if err := config.EnsureDirs(); err != nil {
			return err
		}
		c.sessions, err = session.NewStore(config.SessionsDir())
		if err != nil {
			return err
		}

		if c.engineURL != "" {
			fmt.Printf("Connecting to %s...\n", c.engineURL)
			remote := engine.NewRemoteEngine(c.engineURL, entry.RepoID)
			if err := remote.Load(cmd.Context(), snapDir, engine.Options{}); err != nil {
				return fmt.Errorf("engine at %s: %w", c.engineURL, err)
			}
			c.engine = remote
			c.selector = &chat.Selector{Template: remote}
		} else {
			fmt.Printf("Loading %s...\n", entry.RepoID)
			eng := engine.NewProcessEngine()
			if err := eng.Load(cmd.Context(), snapDir, engine.Options{
				Port:        c.port,
				Command:     c.serverCmd,
				ContextSize: c.ctxSize,
			}); err != nil {
				return err
			}
			defer eng.Close()
			c.engine = eng
			c.selector = &chat.Selector{Template: eng}
		}

		if c.recallOn {
			rs, err := recall.NewVectorStore(config.RecallDir(), recall.NewEngineEmbedFunc(c.engine))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: recall disabled: %v\n", err)
			} else {
				c.recall = rs
				defer rs.Close()
				fmt.Printf("Recall enabled (%d stored exchanges).\n", rs.Count())
			}
		}

		if c.resumeID != "" {
			if err := c.resume(c.resumeID); err != nil {
				return err
			}
		} else {
			c.newSession()
		}

		fmt.Printf("Ready. Type a message, or /help for commands.\n\n")
		return c.loop(cmd.Context())
	},
}

// chatRun holds the state of one interactive chat.
type chatRun struct {
	cfg    *config.Config
	store  *models.Store
	entry  models.Entry
	mc     models.ModelConfig
	styles ux.Styles

	engine   engine.Engine
	selector *chat.Selector
	sessions *session.Store
	recall   recall.Store

	sess    *session.Session
	history []chat.Turn

	mode       chat.Mode
	streamMode string // all, final, off
	system     string
	reasoning  string // "", low, medium, high
	maxTokens  int
	timeLimit  int // seconds, 0 = off
	historyOn  bool
	showStats  bool

	port      int
	ctxSize   int
	serverCmd string
	engineURL string
	stops     []string
	recallOn  bool
	resumeID  string
}

func (c *chatRun) applyFlags(cmd *cobra.Command) error {
	d := c.cfg.Defaults

	modeName, _ := cmd.Flags().GetString("mode")
	if modeName == "" {
		modeName = d.ChatMode
	}
	mode, err := chat.ParseMode(modeName)
	if err != nil {
		return err
	}
	c.mode = mode

	c.streamMode, _ = cmd.Flags().GetString("stream")
	if c.streamMode == "" {
		c.streamMode = d.StreamMode
	}
	switch c.streamMode {
	case "all", "final", "off":
	default:
		return fmt.Errorf("unknown stream mode %q (want all, final or off)", c.streamMode)
	}

	c.system, _ = cmd.Flags().GetString("system")
	if systemFile, _ := cmd.Flags().GetString("system-file"); systemFile != "" {
		data, err := os.ReadFile(systemFile)
		if err != nil {
			return fmt.Errorf("read system file: %w", err)
		}
		c.system = strings.TrimRight(string(data), "\n")
	}

	c.reasoning, _ = cmd.Flags().GetString("reasoning")
	if c.reasoning == "" {
		c.reasoning = d.Reasoning
	}

	c.maxTokens, _ = cmd.Flags().GetInt("max-tokens")
	if c.maxTokens == 0 {
		c.maxTokens = d.MaxTokens
	}

	c.timeLimit, _ = cmd.Flags().GetInt("time-limit")
	if !cmd.Flags().Changed("time-limit") {
		c.timeLimit = d.TimeLimit
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	c.historyOn = !noHistory && d.History != "off"
	c.showStats = d.ShowContextStats

	c.port, _ = cmd.Flags().GetInt("port")
	c.ctxSize, _ = cmd.Flags().GetInt("ctx-size")
	c.serverCmd, _ = cmd.Flags().GetString("server-cmd")
	c.engineURL, _ = cmd.Flags().GetString("engine-url")
	c.stops, _ = cmd.Flags().GetStringSlice("stop")
	c.recallOn, _ = cmd.Flags().GetBool("recall")
	c.resumeID, _ = cmd.Flags().GetString("session")
	return nil
}

func (c *chatRun) settings() session.Settings {
	return session.Settings{
		MaxTokens:  c.maxTokens,
		StreamMode: c.streamMode,
		ChatMode:   string(c.mode),
		Reasoning:  c.reasoning,
		TimeLimit:  c.timeLimit,
	}
}

func (c *chatRun) newSession() {
	c.sess = session.New(c.entry.RepoID, c.settings())
	c.history = nil
}

func (c *chatRun) resume(id string) error {
	s, err := c.sessions.Load(id)
	if err != nil {
		return err
	}
	c.sess = s
	c.history = append([]chat.Turn(nil), s.History...)
	if s.Settings.ChatMode != "" {
		if mode, err := chat.ParseMode(s.Settings.ChatMode); err == nil {
			c.mode = mode
		}
	}
	if s.Settings.StreamMode != "" {
		c.streamMode = s.Settings.StreamMode
	}
	if s.Settings.MaxTokens > 0 {
		c.maxTokens = s.Settings.MaxTokens
	}
	c.reasoning = s.Settings.Reasoning
	fmt.Printf("Resumed %s (%d messages).\n", s.Title(), s.MessageCount)
	return nil
}

// effectiveSystem prepends the reasoning directive to the system prompt.
func (c *chatRun) effectiveSystem() string {
	if c.reasoning == "" {
		return c.system
	}
	directive := "Reasoning: " + c.reasoning
	if c.system == "" {
		return directive
	}
	return directive + "\n" + c.system
}

// stopSequences builds the stop list for one generation call. Harmony
// prompts stop at the channel markers unless MLXLM_NO_DEFAULT_STOPS is set;
// --stop and MLXLM_STOP append extras.
func (c *chatRun) stopSequences() []string {
	stops := append([]string(nil), c.stops...)
	harmony := c.mode == chat.ModeHarmony || (c.mode == chat.ModeAuto && c.mc.NeedsHarmony())
	if harmony && os.Getenv("MLXLM_NO_DEFAULT_STOPS") == "" {
		stops = append(stops, chat.DefaultStopSequences()...)
	}
	if extra := os.Getenv("MLXLM_STOP"); extra != "" {
		for _, s := range strings.Split(extra, ",") {
			if s != "" {
				stops = append(stops, s)
			}
		}
	}
	return stops
}

func (c *chatRun) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print(c.styles.Prompt.Render("> "))
		if !scanner.Scan() {
			fmt.Println()
			c.autosave()
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			quit, err := c.command(ctx, input)
			if err != nil {
				fmt.Fprintln(os.Stderr, c.styles.Error.Render("Error: "+err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := c.turn(ctx, input); err != nil {
			fmt.Fprintln(os.Stderr, c.styles.Error.Render("Error: "+err.Error()))
		}
	}
}

// turn runs one user message through render, generate, and record.
func (c *chatRun) turn(ctx context.Context, input string) error {
	turnHistory := append(c.history, chat.Turn{Role: chat.RoleUser, Content: input})

	prompt, err := c.selector.Render(c.mode, c.effectiveSystem(), turnHistory)
	if err != nil {
		fmt.Fprintln(os.Stderr, c.styles.Warning.Render(
			fmt.Sprintf("Warning: %v; falling back to plain prompt", err)))
		prompt = chat.RenderPlain(c.effectiveSystem(), turnHistory)
	}

	genCtx := ctx
	if c.timeLimit > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, time.Duration(c.timeLimit)*time.Second)
		defer cancel()
	}

	req := &api.CompletionRequest{
		Model:     c.entry.RepoID,
		Prompt:    prompt,
		MaxTokens: &c.maxTokens,
		Stop:      c.stopSequences(),
	}

	start := time.Now()
	reply, err := c.generate(genCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Println(c.styles.Warning.Render("\n[time limit reached]"))
		} else {
			return err
		}
	}
	fmt.Println()

	reply = strings.TrimSpace(reply)
	if reply != "" {
		if c.historyOn {
			c.history = append(c.history,
				chat.Turn{Role: chat.RoleUser, Content: input},
				chat.Turn{Role: chat.RoleAssistant, Content: reply})
		}
		c.sess.Append(input, reply)
		if c.recall != nil {
			ex := recall.Exchange{SessionID: c.sess.ID, Prompt: input, Reply: reply}
			if err := c.recall.Add(context.Background(), ex); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: recall store failed: %v\n", err)
			}
		}
	}

	if c.showStats {
		c.printStats(ctx, prompt, time.Since(start))
	}
	return nil
}

// generate runs the completion in the configured stream mode and returns
// the text recorded into history.
func (c *chatRun) generate(ctx context.Context, req *api.CompletionRequest) (string, error) {
	if c.streamMode == "off" {
		resp, err := c.engine.Completion(ctx, req)
		if err != nil {
			return "", err
		}
		var text string
		if len(resp.Choices) > 0 {
			text = resp.Choices[0].Text
		}
		if c.mode == chat.ModeHarmony {
			text = chat.CleanSentinels(text)
		}
		fmt.Print(c.styles.Output.Render(text))
		return text, nil
	}

	events, err := c.engine.StreamCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	errOut := make(chan error, 1)
	fragments := engine.Fragments(events, errOut)
	if c.streamMode == "final" {
		fragments = chat.FilterFinal(fragments)
	}

	var full strings.Builder
	for f := range fragments {
		fmt.Print(c.styles.Output.Render(f))
		full.WriteString(f)
	}

	select {
	case err := <-errOut:
		return full.String(), err
	default:
	}
	return full.String(), nil
}

func (c *chatRun) printStats(ctx context.Context, prompt string, elapsed time.Duration) {
	tokens, err := c.engine.CountTokens(ctx, prompt)
	if err != nil {
		// Rough estimate when the server has no tokenize endpoint.
		tokens = len(prompt) / 4
	}
	line := fmt.Sprintf("[%.1fs, prompt ~%d tokens", elapsed.Seconds(), tokens)
	layers := c.mc.Int("num_hidden_layers", "n_layers")
	hidden := c.mc.Int("hidden_size", "d_model")
	if layers > 0 && hidden > 0 {
		kv := models.EstimateKVBytes(layers, hidden, tokens, 2)
		line += fmt.Sprintf(", ~%s KV", models.HumanBytes(kv))
	}
	line += "]"
	fmt.Println(c.styles.Dim.Render(line))
}

// autosave persists the session on exit if it saw any exchanges.
func (c *chatRun) autosave() {
	if c.sess == nil || c.sess.MessageCount == 0 {
		return
	}
	if err := c.sessions.Save(c.sess); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save session: %v\n", err)
	} else {
		fmt.Printf("Session saved (%s).\n", c.sess.ID[:8])
	}
	limits := c.cfg.Sessions
	if _, err := c.sessions.Prune(limits.MaxEntries, limits.MaxAgeDays); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: session pruning failed: %v\n", err)
	}
}

func init() {
	runCmd.Flags().String("system", "", "system prompt")
	runCmd.Flags().String("system-file", "", "read system prompt from file")
	runCmd.Flags().String("mode", "", "chat mode: auto, harmony, hf or plain")
	runCmd.Flags().String("stream", "", "stream mode: all, final or off")
	runCmd.Flags().String("reasoning", "", "reasoning effort: low, medium or high")
	runCmd.Flags().Int("max-tokens", 0, "maximum tokens per response")
	runCmd.Flags().Int("time-limit", 0, "per-response time limit in seconds")
	runCmd.Flags().Bool("no-history", false, "send each message without prior turns")
	runCmd.Flags().Int("port", engine.DefaultOptions().Port, "model server port")
	runCmd.Flags().Int("ctx-size", 0, "context window size in tokens")
	runCmd.Flags().String("server-cmd", "", "model server command (default mlx_lm.server)")
	runCmd.Flags().String("engine-url", "", "use a running model server instead of spawning one")
	runCmd.Flags().StringSlice("stop", nil, "extra stop sequences")
	runCmd.Flags().Bool("recall", false, "record exchanges for semantic recall")
	runCmd.Flags().String("session", "", "resume a saved session by ID")
	rootCmd.AddCommand(runCmd)
}
