package engine

import (
	"context"
	"time"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
	"github.com/CreamyCappuccino/mlxlm/pkg/api"
)

// RemoteEngine talks to an already-running model server instead of spawning
// one. Close is a no-op; the server's lifetime belongs to whoever started it.
type RemoteEngine struct {
	client    *Client
	modelName string
}

// NewRemoteEngine creates a RemoteEngine against baseURL.
func NewRemoteEngine(baseURL, modelName string) *RemoteEngine {
	return &RemoteEngine{client: NewClient(baseURL), modelName: modelName}
}

// Load only verifies the server is reachable; the model is whatever the
// remote server already has.
func (e *RemoteEngine) Load(ctx context.Context, modelPath string, opts Options) error {
	return e.client.Health(ctx)
}

func (e *RemoteEngine) Health(ctx context.Context) error {
	return e.client.Health(ctx)
}

func (e *RemoteEngine) Completion(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	return e.client.Completion(ctx, req)
}

func (e *RemoteEngine) StreamCompletion(ctx context.Context, req *api.CompletionRequest) (<-chan StreamEvent, error) {
	return e.client.StreamCompletion(ctx, req)
}

func (e *RemoteEngine) CountTokens(ctx context.Context, text string) (int, error) {
	return e.client.CountTokens(ctx, text)
}

func (e *RemoteEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, text)
}

func (e *RemoteEngine) ApplyChatTemplate(msgs []chat.Turn, addGenerationPrompt bool) (string, error) {
	wire := make([]api.Message, len(msgs))
	for i, m := range msgs {
		wire[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return e.client.ApplyTemplate(ctx, wire, addGenerationPrompt)
}

func (e *RemoteEngine) ModelName() string {
	return e.modelName
}

func (e *RemoteEngine) Close() error {
	return nil
}
