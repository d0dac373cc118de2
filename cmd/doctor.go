package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
	"github.com/CreamyCappuccino/mlxlm/internal/config"
	"github.com/CreamyCappuccino/mlxlm/internal/engine"
	"github.com/CreamyCappuccino/mlxlm/internal/hub"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := styles()
		ok := func(msg string, args ...any) { fmt.Println(st.Success.Render("✓"), fmt.Sprintf(msg, args...)) }
		warn := func(msg string, args ...any) { fmt.Println(st.Warning.Render("!"), fmt.Sprintf(msg, args...)) }
		fail := func(msg string, args ...any) { fmt.Println(st.Error.Render("✗"), fmt.Sprintf(msg, args...)) }

		hubDir := config.HubCacheDir()
		if info, err := os.Stat(hubDir); err == nil && info.IsDir() {
			ok("model cache: %s", hubDir)
		} else {
			warn("model cache missing: %s (created on first pull)", hubDir)
		}

		if err := config.EnsureDirs(); err != nil {
			fail("data dir: %v", err)
		} else {
			ok("data dir: %s", config.DataDir())
		}

		if _, err := config.Load(); err != nil {
			warn("config: %v", err)
		} else {
			ok("config: %s", config.ConfigFile())
		}

		serverCmd := engine.DefaultOptions().Command
		if path, err := exec.LookPath(serverCmd); err == nil {
			ok("model server: %s", path)
		} else {
			fail("model server %q not on PATH (pip install mlx-lm)", serverCmd)
		}

		override := os.Getenv(chat.OverrideEnv)
		if _, err := chat.DefaultRegistry().Discover(override); err != nil {
			if override != "" {
				fail("harmony renderer: override %q: %v", override, err)
			} else {
				warn("harmony renderer: %v", err)
			}
		} else if override != "" {
			ok("harmony renderer: %q (from %s)", override, chat.OverrideEnv)
		} else {
			ok("harmony renderer resolved")
		}

		store := openStore()
		ok("cached models: %d", len(store.List()))

		if config.Offline() {
			warn("offline mode set (MLXLM_OFFLINE); hub access disabled")
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if _, err := hub.NewClient().Search(ctx, "mlx", hub.SearchFilters{Limit: 1}); err != nil {
			warn("hub unreachable: %v", err)
		} else {
			ok("hub reachable")
		}
		if os.Getenv("HF_TOKEN") == "" {
			warn("HF_TOKEN not set; gated models will fail to pull")
		} else {
			ok("HF_TOKEN set")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
