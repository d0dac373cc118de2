package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
	"github.com/CreamyCappuccino/mlxlm/internal/logging"
	"github.com/CreamyCappuccino/mlxlm/pkg/api"
)

// ProcessEngine manages a model-server subprocess for inference.
type ProcessEngine struct {
	cmd       *exec.Cmd
	modelPath string
	modelName string
	opts      Options
	client    *Client
	baseURL   string
}

// NewProcessEngine creates a new ProcessEngine.
func NewProcessEngine() *ProcessEngine {
	return &ProcessEngine{}
}

func (e *ProcessEngine) Load(ctx context.Context, modelPath string, opts Options) error {
	e.modelPath = modelPath
	e.modelName = filepath.Base(modelPath)
	e.opts = opts
	e.baseURL = fmt.Sprintf("http://127.0.0.1:%d", opts.Port)
	e.client = NewClient(e.baseURL)

	command := opts.Command
	if command == "" {
		command = DefaultOptions().Command
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("%s not found on PATH — check 'mlxlm doctor': %w", command, err)
	}

	args := []string{
		"--model", modelPath,
		"--port", strconv.Itoa(opts.Port),
		"--host", "127.0.0.1",
	}
	if opts.ContextSize > 0 {
		args = append(args, "--max-kv-size", strconv.Itoa(opts.ContextSize))
	}
	args = append(args, opts.ExtraArgs...)

	// Background context for the subprocess: it must outlive the call that
	// loaded it. The caller's ctx only bounds the health-check wait.
	e.cmd = exec.Command(command, args...)
	e.cmd.Stderr = os.Stderr
	e.cmd.Env = os.Environ()

	logging.L().Debug("starting model server",
		zap.String("command", command),
		zap.Strings("args", args))

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start model server: %w", err)
	}

	if err := e.waitForHealth(ctx, 120*time.Second); err != nil {
		e.Close()
		return fmt.Errorf("model server failed to start: %w", err)
	}

	logging.L().Debug("model server ready",
		zap.Int("port", opts.Port),
		zap.String("model", e.modelName))
	return nil
}

func (e *ProcessEngine) waitForHealth(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("timeout waiting for model server after %s", timeout)
			}
			if err := e.client.Health(ctx); err == nil {
				return nil
			}
		}
	}
}

func (e *ProcessEngine) Health(ctx context.Context) error {
	return e.client.Health(ctx)
}

func (e *ProcessEngine) Completion(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	return e.client.Completion(ctx, req)
}

func (e *ProcessEngine) StreamCompletion(ctx context.Context, req *api.CompletionRequest) (<-chan StreamEvent, error) {
	return e.client.StreamCompletion(ctx, req)
}

func (e *ProcessEngine) CountTokens(ctx context.Context, text string) (int, error) {
	return e.client.CountTokens(ctx, text)
}

func (e *ProcessEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, text)
}

// ApplyChatTemplate renders a message list through the server's own chat
// template, satisfying chat.TemplateRenderer.
func (e *ProcessEngine) ApplyChatTemplate(msgs []chat.Turn, addGenerationPrompt bool) (string, error) {
	wire := make([]api.Message, len(msgs))
	for i, m := range msgs {
		wire[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return e.client.ApplyTemplate(ctx, wire, addGenerationPrompt)
}

func (e *ProcessEngine) ModelName() string {
	return e.modelName
}

func (e *ProcessEngine) Close() error {
	if e.cmd != nil && e.cmd.Process != nil {
		logging.L().Debug("stopping model server", zap.Int("pid", e.cmd.Process.Pid))
		if err := e.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill model server: %w", err)
		}
		e.cmd.Wait()
	}
	return nil
}
